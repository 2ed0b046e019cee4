package services

import (
	"context"
	"errors"
	"fmt"
	"log"

	"github.com/robfig/cron/v3"

	"github.com/rakhargo/LotteryFoundry/internal/raffle"
)

// Keeper is the automation agent: on a cron schedule it evaluates the
// upkeep predicate and, when it holds, triggers the round. Several keepers
// may race; losing the race surfaces as UpkeepNotNeeded and is not an
// error.
type Keeper struct {
	service *RaffleService
	spec    string
	logger  *log.Logger
	cron    *cron.Cron
}

func NewKeeper(service *RaffleService, spec string, logger *log.Logger) *Keeper {
	return &Keeper{
		service: service,
		spec:    spec,
		logger:  logger,
		cron:    cron.New(),
	}
}

// Start registers the upkeep job and starts the scheduler.
func (k *Keeper) Start() error {
	if _, err := k.cron.AddJob(k.spec, k); err != nil {
		return fmt.Errorf("schedule keeper %q: %w", k.spec, err)
	}
	k.cron.Start()
	return nil
}

// Run is the cron.Job entrypoint for one keeper tick.
func (k *Keeper) Run() {
	status := k.service.CheckUpkeep()
	if !status.Needed {
		return
	}

	requestID, err := k.service.PerformUpkeep(context.Background())
	if err != nil {
		var notNeeded *raffle.UpkeepNotNeededError
		if errors.As(err, &notNeeded) {
			// Another trigger won between the check and the transition.
			return
		}
		k.logger.Printf("perform upkeep: %v", err)
		return
	}
	k.logger.Printf("upkeep performed, randomness request %s submitted", requestID)
}

// Stop halts the scheduler and waits for a running tick to finish.
func (k *Keeper) Stop() {
	<-k.cron.Stop().Done()
}
