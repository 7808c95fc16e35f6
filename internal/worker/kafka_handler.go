package worker

import (
	"context"

	"github.com/example/ocpi-client/internal/kafka/consumer"
)

// KafkaHandler adapts engine to the consumer callback. Offsets are committed
// through cons once the engine is done with a record.
func KafkaHandler(engine *Engine, cons *consumer.Consumer) consumer.Handler {
	return func(ctx context.Context, rec *consumer.Record) error {
		if engine == nil || rec == nil {
			return nil
		}

		var commit func(context.Context) error
		if cons != nil {
			commit = func(c context.Context) error { return cons.Commit(c, rec) }
		}

		wr := NewRecord(rec.Topic, rec.Partition, rec.Offset, rec.Key, rec.Value, commit)
		wr.Timestamp = rec.Timestamp
		if len(rec.Headers) > 0 {
			wr.Headers = make(map[string][]byte, len(rec.Headers))
			for k, v := range rec.Headers {
				wr.Headers[k] = cloneBytes(v)
			}
		}
		engine.HandleRecord(ctx, wr)
		return nil
	}
}
