package embedding

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/hqta1110/vnrag/codec"
)

const (
	DefaultEndpointPath = "/vnptai-hackathon-embedding"
	DefaultModel        = "vnptai_hackathon_embedding"
	DefaultBatchSize    = 16
	DefaultWorkers      = 10
	DefaultMaxAttempts  = 3
	DefaultRetryDelay   = 60 * time.Second
	DefaultTimeout      = 300 * time.Second
)

// Credentials are the three header credentials the service expects.
type Credentials struct {
	BearerToken string
	TokenID     string
	TokenKey    string
}

// Options configures a Client.
type Options struct {
	// BaseURL is the service root; EndpointPath is appended to it.
	BaseURL      string
	EndpointPath string
	Model        string
	Credentials  Credentials

	// BatchSize is the number of texts per request in EmbedMany.
	BatchSize int
	// Workers bounds the number of in-flight batch requests.
	Workers int
	// MaxAttempts is the number of tries per batch, including the first.
	MaxAttempts int
	// RetryDelay is the fixed wait between attempts.
	RetryDelay time.Duration
	// Timeout bounds each HTTP request. A timed-out request is retryable.
	Timeout time.Duration
	// RateLimit caps requests per second across all workers. Zero disables it.
	RateLimit float64

	HTTPClient *http.Client
	Codec      codec.Codec
	Logger     *slog.Logger
}

// DefaultOptions returns the production settings of the hosted service.
var DefaultOptions = Options{
	EndpointPath: DefaultEndpointPath,
	Model:        DefaultModel,
	BatchSize:    DefaultBatchSize,
	Workers:      DefaultWorkers,
	MaxAttempts:  DefaultMaxAttempts,
	RetryDelay:   DefaultRetryDelay,
	Timeout:      DefaultTimeout,
}

func (o *Options) applyDefaults() {
	if o.EndpointPath == "" {
		o.EndpointPath = DefaultEndpointPath
	}
	if o.Model == "" {
		o.Model = DefaultModel
	}
	if o.BatchSize <= 0 {
		o.BatchSize = DefaultBatchSize
	}
	if o.Workers <= 0 {
		o.Workers = DefaultWorkers
	}
	if o.MaxAttempts <= 0 {
		o.MaxAttempts = DefaultMaxAttempts
	}
	if o.RetryDelay < 0 {
		o.RetryDelay = 0
	}
	if o.Timeout <= 0 {
		o.Timeout = DefaultTimeout
	}
	if o.HTTPClient == nil {
		o.HTTPClient = &http.Client{}
	}
	if o.Codec == nil {
		o.Codec = codec.Default
	}
	if o.Logger == nil {
		o.Logger = slog.New(slog.DiscardHandler)
	}
}
