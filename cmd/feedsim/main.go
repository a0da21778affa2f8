// Command feedsim generates a deterministic synthetic season and posts it to
// a running ratings service.
package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/courtline/ratings/internal/domain/sport"
	"github.com/courtline/ratings/internal/feedsim"
	"github.com/courtline/ratings/pkg/logger"
)

func main() {
	var (
		baseURL   = flag.String("url", "http://localhost:9080", "base URL of the ratings service")
		sportName = flag.String("sport", "basketball", "sport policy: basketball, football, baseball")
		teams     = flag.String("teams", "", "comma-separated team names (default: synthetic team-01..team-08)")
		teamCount = flag.Int("n", 8, "number of synthetic teams when -teams is empty")
		rounds    = flag.Int("rounds", 2, "full round robins to play")
		seed      = flag.Int64("seed", 1, "simulation seed")
		noise     = flag.Float64("noise", 8.0, "score noise standard deviation")
	)
	flag.Parse()

	if err := logger.Init(); err != nil {
		os.Stderr.WriteString("failed to initialize logging: " + err.Error() + "\n")
		return
	}
	log := logger.Get()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	policy, err := sport.ByName(*sportName)
	if err != nil {
		log.Error(ctx, "invalid sport", logger.Error(err))
		os.Exit(1)
	}

	universe := feedsim.DefaultTeams(*teamCount)
	if *teams != "" {
		universe = strings.Split(*teams, ",")
		for i := range universe {
			universe[i] = strings.TrimSpace(universe[i])
		}
	}

	gen := feedsim.New(feedsim.Config{
		Teams:       universe,
		Rounds:      *rounds,
		Seed:        *seed,
		NoiseStddev: *noise,
		Policy:      policy,
	})
	season := gen.Season(ctx)

	if err := feedsim.NewPoster(*baseURL).Post(ctx, season); err != nil {
		log.Error(ctx, "season delivery failed", logger.Error(err))
		os.Exit(1)
	}
}
