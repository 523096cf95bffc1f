package main

import (
	"fmt"
	"log/slog"

	"tarifa/internal/config"
	"tarifa/internal/factors"
)

func runSignals(cfg *config.Config, logger *slog.Logger, args []string) error {
	fs := flagSet("signals")
	category := fs.String("category", "", "restrict to one category: momentum, value, quality, alternative")
	verbose := fs.Bool("verbose", false, "print each signal's aliases and lookback")
	if err := fs.Parse(args); err != nil {
		return err
	}

	var infos []factors.Info
	if *category != "" {
		infos = factors.SignalsByCategory(factors.Category(*category))
	} else {
		infos = factors.AvailableSignals()
	}

	byCategory := make(map[factors.Category][]factors.Info)
	for _, info := range infos {
		byCategory[info.Category] = append(byCategory[info.Category], info)
	}

	cats := factors.AvailableCategories()
	if *category != "" {
		cats = []factors.Category{factors.Category(*category)}
	}

	for _, c := range cats {
		group := byCategory[c]
		if len(group) == 0 {
			continue
		}
		fmt.Printf("%s - %s\n", c, c.Description())
		for _, info := range group {
			fmt.Printf("  %-24s %s\n", info.Name, info.Description)
			if *verbose {
				if len(info.Aliases) > 0 {
					fmt.Printf("    aliases:  %v\n", info.Aliases)
				}
				fmt.Printf("    lookback: %d trading days, fundamentals: %v\n", info.TypicalLookback, info.RequiresFundamentals)
			}
		}
	}

	return nil
}
