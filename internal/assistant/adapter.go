package assistant

import (
	"context"
	"errors"
	"net"
	"os"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/JeffBrines/RealEstateInsightsPub/internal/filter"
	"github.com/JeffBrines/RealEstateInsightsPub/internal/models"
	"github.com/JeffBrines/RealEstateInsightsPub/internal/stats"
)

// Source tags which path produced an answer.
type Source string

const (
	SourceRemote   Source = "remote"
	SourceFallback Source = "fallback"
)

// Answer is the adapter's reply. Reason explains a fallback.
type Answer struct {
	Answer  string             `json:"answer"`
	Data    map[string]any     `json:"data,omitempty"`
	Filters *models.FilterSpec `json:"filters,omitempty"`
	Source  Source             `json:"source"`
	Reason  string             `json:"reason,omitempty"`
}

// Degraded reports whether the local fallback produced the answer.
func (a Answer) Degraded() bool { return a.Source == SourceFallback }

// Options configures the remote path.
type Options struct {
	Model       string
	MaxTokens   int
	Temperature float64
	Timeout     time.Duration
	// Send the filtered records along with the summary
	IncludeRecords bool
	// Clock for KPI context and fallback answers
	Now func() time.Time
}

// Adapter answers questions about a record set. It never fails: any remote
// problem yields a fallback answer tagged with the reason.
type Adapter struct {
	runtime  Runtime
	fallback *Fallback
	opts     Options
	logger   *logrus.Logger
}

// NewAdapter wraps runtime. A nil runtime always answers locally.
func NewAdapter(runtime Runtime, opts Options, logger *logrus.Logger) *Adapter {
	if logger == nil {
		logger = logrus.New()
		logger.SetFormatter(&logrus.JSONFormatter{})
		logger.SetOutput(os.Stdout)
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 20 * time.Second
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Adapter{
		runtime:  runtime,
		fallback: NewFallback(opts.Now),
		opts:     opts,
		logger:   logger,
	}
}

// Ask answers query over records narrowed by active.
func (a *Adapter) Ask(ctx context.Context, query string, records []models.Property, active *models.FilterSpec) Answer {
	query = strings.TrimSpace(query)
	if query == "" {
		return Answer{Answer: "Ask a question about the loaded properties.", Source: SourceFallback, Reason: "empty question"}
	}
	if a.runtime == nil {
		return a.degrade(query, records, active, ErrMissingCredentials)
	}

	subset := records
	if !active.IsEmpty() {
		subset = filter.Apply(records, *active)
	}
	pctx := promptContext{
		Summary:       stats.Summarize(subset),
		KPIs:          stats.Compute(subset, a.opts.Now()),
		ActiveFilters: active,
	}
	if a.opts.IncludeRecords {
		pctx.Records = subset
	}
	messages, err := buildMessages(query, pctx)
	if err != nil {
		return a.degrade(query, records, active, err)
	}

	ctx, cancel := context.WithTimeout(ctx, a.opts.Timeout)
	defer cancel()

	start := time.Now()
	resp, err := a.runtime.Generate(ctx, GenerateRequest{
		Model:       a.opts.Model,
		Messages:    messages,
		MaxTokens:   a.opts.MaxTokens,
		Temperature: a.opts.Temperature,
	})
	if err != nil {
		return a.degrade(query, records, active, err)
	}
	if len(resp.Choices) == 0 {
		return a.degrade(query, records, active, ErrEmptyResponse)
	}
	reply, err := parseReply(resp.Choices[0].Message.Content)
	if err != nil {
		return a.degrade(query, records, active, err)
	}

	a.logger.WithFields(logrus.Fields{
		"source":     SourceRemote,
		"request_id": resp.RequestID,
		"tokens":     resp.Usage.TotalTokens,
		"elapsed":    time.Since(start).String(),
	}).Info("Answered question")

	return Answer{
		Answer:  reply.Answer,
		Data:    reply.Data,
		Filters: reply.Filters,
		Source:  SourceRemote,
	}
}

func (a *Adapter) degrade(query string, records []models.Property, active *models.FilterSpec, cause error) Answer {
	entry := a.logger.WithField("source", SourceFallback).WithError(cause)
	if errors.Is(cause, ErrMissingCredentials) {
		entry.Debug("Answering locally")
	} else {
		entry.Warn("Remote model failed, answering locally")
	}

	ans := a.fallback.Answer(query, records, active)
	ans.Reason = reason(cause)
	return ans
}

func reason(err error) string {
	var (
		authErr *AuthError
		rateErr *RateLimitError
		srvErr  *ServerError
		badReq  *BadRequestError
		netErr  net.Error
	)
	switch {
	case errors.Is(err, ErrMissingCredentials):
		return "remote model not configured"
	case errors.Is(err, context.DeadlineExceeded), errors.As(err, &netErr) && netErr.Timeout():
		return "remote model timed out"
	case errors.Is(err, ErrEmptyResponse):
		return "remote model returned an empty answer"
	case errors.As(err, &authErr):
		return "remote model rejected the credentials"
	case errors.As(err, &rateErr):
		return "remote model is rate limited"
	case errors.As(err, &srvErr):
		return "remote model is unavailable"
	case errors.As(err, &badReq):
		return "remote model rejected the request"
	}
	return "remote model unreachable"
}
