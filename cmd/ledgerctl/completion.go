package main

import (
	"github.com/posener/complete/v2"
	"github.com/posener/complete/v2/predict"
)

// completion describes the command line for shell completion. Install it with
// COMP_INSTALL=1 ledgerctl.
func completion() *complete.Command {
	account := map[string]complete.Predictor{"account": predict.Something}
	trade := map[string]complete.Predictor{
		"account": predict.Something,
		"symbol":  predict.Something,
		"qty":     predict.Something,
	}
	return &complete.Command{
		Sub: map[string]*complete.Command{
			"migrate":   {},
			"register":  {Flags: map[string]complete.Predictor{"username": predict.Something, "password": predict.Something}},
			"deposit":   {Flags: map[string]complete.Predictor{"account": predict.Something, "amount": predict.Something}},
			"buy":       {Flags: trade},
			"sell":      {Flags: trade},
			"quote":     {Args: predict.Something},
			"portfolio": {Flags: map[string]complete.Predictor{"account": predict.Something, "audit": predict.Nothing, "raw": predict.Nothing}},
			"history":   {Flags: map[string]complete.Predictor{"account": predict.Something, "limit": predict.Something, "raw": predict.Nothing}},
			"audit":     {Flags: account},
			"export":    {Flags: map[string]complete.Predictor{"account": predict.Something, "o": predict.Files("*.parquet")}},
			"help":      {},
			"commands":  {},
			"flags":     {},
		},
	}
}
