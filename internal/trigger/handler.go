package trigger

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// Acknowledgement is the body of every /run response.
const Acknowledgement = "Chelsea page monitor run manually!"

// HandlerOptions tunes NewHandler.
type HandlerOptions struct {
	// Timeout bounds a manual run. Zero means no bound.
	Timeout time.Duration

	// AccessLog enables chi's request logger.
	AccessLog bool

	Logger Logger
}

// NewHandler serves the on-demand trigger.
//
//	GET|POST /run   one synchronous run, then 200 Acknowledgement
//	GET /healthz    200 "ok"
//
// /run answers the same way whatever the run did; outcomes are only logged.
// The run is detached from the request's cancellation, so a client that
// disconnects mid-run does not abort it.
func NewHandler(r Runner, opts HandlerOptions) http.Handler {
	logger := orDiscard(opts.Logger)

	mux := chi.NewRouter()
	mux.Use(middleware.RequestID)
	mux.Use(middleware.RealIP)
	if opts.AccessLog {
		mux.Use(middleware.RequestLogger(&middleware.DefaultLogFormatter{Logger: printer{logger}, NoColor: true}))
	}
	mux.Use(middleware.Recoverer)

	run := func(w http.ResponseWriter, req *http.Request) {
		ctx := context.WithoutCancel(req.Context())
		if opts.Timeout > 0 {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, opts.Timeout)
			defer cancel()
		}

		start := time.Now()
		reqID := middleware.GetReqID(ctx)
		if err := r.Run(ctx); err != nil {
			logger.Printf("stage=manual status=error request_id=%s duration=%s err=%v", reqID, time.Since(start).Truncate(time.Millisecond), err)
		} else {
			logger.Printf("stage=manual ok request_id=%s duration=%s", reqID, time.Since(start).Truncate(time.Millisecond))
		}

		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(Acknowledgement))
	}
	mux.Get("/run", run)
	mux.Post("/run", run)

	mux.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		_, _ = w.Write([]byte("ok"))
	})

	return mux
}

// printer satisfies chi's middleware.LoggerInterface.
type printer struct{ l Logger }

func (p printer) Print(v ...any) { p.l.Printf("%s", fmt.Sprint(v...)) }
