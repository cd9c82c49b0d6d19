package exchange

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"spread_trader/internal/config"
	"spread_trader/internal/core"
	"spread_trader/internal/paper"
	pkghttp "spread_trader/pkg/http"
)

const defaultRequestTimeout = 10 * time.Second

// Build constructs the gateway for every configured venue. In paper
// trading mode each gateway is wrapped in a simulated ledger so market
// data stays live while orders and balances are simulated.
func Build(cfg *config.Config, logger core.ILogger) (map[string]core.IExchange, error) {
	exchanges := make(map[string]core.IExchange, len(cfg.Exchanges))
	for name, ex := range cfg.Exchanges {
		if ex.APIURL == "" {
			return nil, fmt.Errorf("exchange %s: api_url is required", name)
		}
		var signer pkghttp.Signer
		if ex.APIKey != "" {
			signer = NewHMACSigner(ex.APIKey, ex.APISecret)
		}
		var gw core.IExchange = NewRESTExchange(name, ex.APIURL, defaultRequestTimeout, signer, logger)
		if cfg.App.PaperTrading {
			fee := core.ExchangeFee{TradeFee: decimal.NewFromFloat(ex.FeeRate)}
			if ex.MarginFeeRate != nil {
				mf := decimal.NewFromFloat(*ex.MarginFeeRate)
				fee.MarginFee = &mf
			}
			gw = paper.NewExchange(gw, paper.Config{
				InitialBalance: decimal.NewFromFloat(cfg.Paper.InitialBalance),
				HomeCurrency:   ex.HomeCurrency,
				AutoFill:       cfg.Paper.AutoFill,
				Margin:         ex.Margin,
				Fee:            fee,
			})
		}
		exchanges[name] = gw
	}
	return exchanges, nil
}
