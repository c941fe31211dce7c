package knowledge

import (
	"context"
	"time"

	"golang.org/x/sync/semaphore"
	"golang.org/x/time/rate"
)

type limitedGenerator struct {
	next    Generator
	limiter *rate.Limiter
	sem     *semaphore.Weighted
}

// WithLimits bounds g globally: at most maxInFlight concurrent calls and,
// when requestsPerMinute > 0, a steady request rate. Every caller sharing
// the returned Generator shares both limits.
func WithLimits(g Generator, requestsPerMinute, maxInFlight int) Generator {
	lg := &limitedGenerator{next: g}
	if requestsPerMinute > 0 {
		lg.limiter = rate.NewLimiter(rate.Every(time.Minute/time.Duration(requestsPerMinute)), 1)
	}
	if maxInFlight > 0 {
		lg.sem = semaphore.NewWeighted(int64(maxInFlight))
	}
	return lg
}

func (l *limitedGenerator) Generate(ctx context.Context, p Prompt) (string, error) {
	if l.sem != nil {
		if err := l.sem.Acquire(ctx, 1); err != nil {
			return "", err
		}
		defer l.sem.Release(1)
	}
	if l.limiter != nil {
		if err := l.limiter.Wait(ctx); err != nil {
			return "", err
		}
	}
	return l.next.Generate(ctx, p)
}
