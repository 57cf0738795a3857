// Command workqueue-demo runs a producer and a worker against a real
// Redis instance, exercising the public workq contract end-to-end, in
// the shape of the teacher's many single-file examples/ subpackages.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/kart-io/workq"
	"github.com/kart-io/workq/internal/telemetry"
	"github.com/kart-io/workq/internal/wqlog"
	"github.com/kart-io/workq/locking/redislock"
	"github.com/kart-io/workq/store/redisstore"
)

type demoJob struct {
	N int `json:"n"`
}

func main() {
	addr := flag.String("addr", "127.0.0.1:6379", "redis address")
	queueName := flag.String("queue", "workqueue-demo", "queue name")
	count := flag.Int("count", 10, "number of jobs to enqueue")
	flag.Parse()

	logger := wqlog.New(wqlog.Info, "workqueue-demo")

	st, err := redisstore.New(&redisstore.Options{Addr: *addr}, logger)
	if err != nil {
		log.Fatalf("connect to redis: %v", err)
	}
	defer st.Close()

	client := redis.NewClient(&redis.Options{Addr: *addr})
	defer client.Close()
	lock := redislock.New(client, logger)

	tel, err := telemetry.New(telemetry.Config{Enabled: false})
	if err != nil {
		log.Fatalf("init telemetry: %v", err)
	}

	q, err := workq.New(*queueName, st, lock, logger, tel,
		workq.WithRetries(2),
		workq.WithRetryDelay(200*time.Millisecond),
		workq.WithWorkItemTimeout(5*time.Second),
	)
	if err != nil {
		log.Fatalf("construct queue: %v", err)
	}
	defer q.Dispose()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := q.StartWorking(ctx, func(ctx context.Context, entry *workq.QueueEntry) error {
		var job demoJob
		if err := entry.Unmarshal(&job); err != nil {
			return err
		}
		fmt.Printf("processed job n=%d (attempt %d)\n", job.N, entry.Attempts)
		return nil
	}, true); err != nil {
		log.Fatalf("start working: %v", err)
	}

	for i := 0; i < *count; i++ {
		id, err := q.Enqueue(ctx, demoJob{N: i})
		if err != nil {
			log.Printf("enqueue failed: %v", err)
			continue
		}
		fmt.Printf("enqueued job n=%d id=%s\n", i, id)
	}

	time.Sleep(2 * time.Second)

	stats, err := q.Stats(ctx)
	if err != nil {
		log.Fatalf("stats: %v", err)
	}
	fmt.Printf("final stats: %+v\n", stats)
}
