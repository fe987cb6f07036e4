// Copyright 2025 Blink Labs Software
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package paddock

import (
	"errors"
	"io"
	"log/slog"
	"time"

	"github.com/blinklabs-io/paddock/chain"
	"github.com/blinklabs-io/paddock/registry"
	"github.com/prometheus/client_golang/prometheus"
)

// Genesis defaults used when the params row does not exist yet. They only
// apply on first start; after that the stored row is authoritative and
// changes go through the governance operations.
const (
	DefaultMaxProducts    = 1_000_000
	DefaultCustodyCap     = 100
	DefaultAttestationCap = 50
	DefaultBlockInterval  = time.Second
)

type Config struct {
	promRegistry    prometheus.Registerer
	logger          *slog.Logger
	clock           chain.Clock
	genesisTime     time.Time
	admin           chain.Principal
	oracle          chain.Principal
	dataDir         string
	blobPlugin      string
	metadataPlugin  string
	mintFee         uint64
	maxProducts     uint64
	custodyCap      int
	attestationCap  int
	blockInterval   time.Duration
	tracing         bool
	tracingStdout   bool
	shutdownTimeout time.Duration
	feeTransfer     registry.FeeTransferFunc
}

func (n *Node) configValidate() error {
	if !n.config.admin.Valid() {
		return errors.New("no admin principal configured")
	}
	if n.config.blockInterval <= 0 {
		return errors.New("block interval must be positive")
	}
	if n.config.custodyCap <= 0 || n.config.attestationCap <= 0 {
		return errors.New("sequence caps must be positive")
	}
	return nil
}

// ConfigOptionFunc is a type that represents functions that modify the Node config
type ConfigOptionFunc func(*Config)

// NewConfig creates a new paddock config with the specified options
func NewConfig(opts ...ConfigOptionFunc) Config {
	c := Config{
		// Default logger will throw away logs
		// We do this so we don't have to add guards around every log operation
		logger:         slog.New(slog.NewJSONHandler(io.Discard, nil)),
		maxProducts:    DefaultMaxProducts,
		custodyCap:     DefaultCustodyCap,
		attestationCap: DefaultAttestationCap,
		blockInterval:  DefaultBlockInterval,
	}
	// Apply options
	for _, opt := range opts {
		opt(&c)
	}
	return c
}

// WithLogger specifies the logger to use. This defaults to discarding log output
func WithLogger(logger *slog.Logger) ConfigOptionFunc {
	return func(c *Config) {
		c.logger = logger
	}
}

// WithDataDir specifies the persistent data directory to use. The default is to store everything in memory
func WithDataDir(dataDir string) ConfigOptionFunc {
	return func(c *Config) {
		c.dataDir = dataDir
	}
}

// WithBlobPlugin specifies the blob storage plugin to use.
func WithBlobPlugin(plugin string) ConfigOptionFunc {
	return func(c *Config) {
		c.blobPlugin = plugin
	}
}

// WithMetadataPlugin specifies the metadata storage plugin to use.
func WithMetadataPlugin(plugin string) ConfigOptionFunc {
	return func(c *Config) {
		c.metadataPlugin = plugin
	}
}

// WithAdmin specifies the administrator principal seeded into the genesis
// params row. Required on first start; ignored once a params row exists,
// since the stored admin can only change via SetAdmin
func WithAdmin(admin chain.Principal) ConfigOptionFunc {
	return func(c *Config) {
		c.admin = admin
	}
}

// WithOracle specifies the designated-oracle principal seeded at genesis.
// Like the admin, the stored value wins after first start
func WithOracle(oracle chain.Principal) ConfigOptionFunc {
	return func(c *Config) {
		c.oracle = oracle
	}
}

// WithMintFee specifies the genesis mint fee in ledger units
func WithMintFee(fee uint64) ConfigOptionFunc {
	return func(c *Config) {
		c.mintFee = fee
	}
}

// WithMaxProducts specifies the genesis registration capacity
func WithMaxProducts(max uint64) ConfigOptionFunc {
	return func(c *Config) {
		c.maxProducts = max
	}
}

// WithCustodyEventCap specifies the per-product custody trail cap
func WithCustodyEventCap(cap int) ConfigOptionFunc {
	return func(c *Config) {
		c.custodyCap = cap
	}
}

// WithAttestationCap specifies the per-product attestation cap
func WithAttestationCap(cap int) ConfigOptionFunc {
	return func(c *Config) {
		c.attestationCap = cap
	}
}

// WithBlockInterval specifies the wall-clock duration of one logical block
// when using the built-in tick clock. The default is one second
func WithBlockInterval(interval time.Duration) ConfigOptionFunc {
	return func(c *Config) {
		c.blockInterval = interval
	}
}

// WithGenesisTime specifies the instant logical block zero starts. The
// default is the node's first start time
func WithGenesisTime(genesis time.Time) ConfigOptionFunc {
	return func(c *Config) {
		c.genesisTime = genesis
	}
}

// WithClock specifies an external logical clock to stamp operations with.
// This overrides the built-in tick clock; use it when the host already has a
// block source
func WithClock(clock chain.Clock) ConfigOptionFunc {
	return func(c *Config) {
		c.clock = clock
	}
}

// WithFeeTransfer specifies the collaborator that moves the mint fee during
// registration. The default debits the database-backed account ledger inside
// the registration transaction
func WithFeeTransfer(fn registry.FeeTransferFunc) ConfigOptionFunc {
	return func(c *Config) {
		c.feeTransfer = fn
	}
}

// WithPrometheusRegistry specifies a prometheus.Registerer instance to add metrics to. In most cases, prometheus.DefaultRegistry would be
// a good choice to get metrics working
func WithPrometheusRegistry(registry prometheus.Registerer) ConfigOptionFunc {
	return func(c *Config) {
		c.promRegistry = registry
	}
}

// WithTracing enables tracing. By default, spans are submitted to a HTTP(s) endpoint using OTLP. This can be configured
// using the OTEL_EXPORTER_OTLP_* env vars documented in the README for [go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp]
func WithTracing(tracing bool) ConfigOptionFunc {
	return func(c *Config) {
		c.tracing = tracing
	}
}

// WithTracingStdout enables tracing output to stdout. This also requires tracing to enabled separately. This is mostly useful for debugging
func WithTracingStdout(stdout bool) ConfigOptionFunc {
	return func(c *Config) {
		c.tracingStdout = stdout
	}
}

// WithShutdownTimeout specifies the timeout for graceful shutdown. The default is 30 seconds
func WithShutdownTimeout(timeout time.Duration) ConfigOptionFunc {
	return func(c *Config) {
		c.shutdownTimeout = timeout
	}
}
