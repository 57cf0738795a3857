package workq

import "time"

// Config holds queue configuration (§6.4). Construct via New with Options;
// the zero value is never used directly.
type Config struct {
	queueName string

	retries          int
	retryDelay       time.Duration
	retryMultipliers []int64

	workItemTimeout time.Duration

	deadLetterTTL      time.Duration
	deadLetterMaxItems int

	runMaintenanceTasks bool

	behaviors behaviorChain

	serializer Serializer
}

func defaultConfig(queueName string) *Config {
	return &Config{
		queueName:           queueName,
		retries:             2,
		retryDelay:          60 * time.Second,
		retryMultipliers:    []int64{1, 3, 5, 10},
		workItemTimeout:     10 * time.Minute,
		deadLetterTTL:       24 * time.Hour,
		deadLetterMaxItems:  100,
		runMaintenanceTasks: true,
		serializer:          jsonSerializer{},
	}
}
