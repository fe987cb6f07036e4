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

package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"

	"github.com/blinklabs-io/paddock"
	"github.com/blinklabs-io/paddock/chain"
	"github.com/blinklabs-io/paddock/registry"
	"github.com/spf13/cobra"
)

// Demo principals. The registry treats principals as opaque, so any labels
// work; these just make the printed trace readable
const (
	demoAdmin   = chain.Principal("demo:admin")
	demoOracle  = chain.Principal("demo:oracle")
	demoMaker   = chain.Principal("demo:manufacturer")
	demoShipper = chain.Principal("demo:shipper")
	demoAuditor = chain.Principal("demo:auditor")
)

func demoFingerprint(fill byte) []byte {
	return bytes.Repeat([]byte{fill}, chain.FingerprintSize)
}

// demoRun walks one product through the full provenance flow against an
// in-memory node and prints the resulting trace and audit log
func demoRun(logger *slog.Logger) error {
	clock := chain.NewManualClock(100)
	p, err := paddock.New(paddock.NewConfig(
		paddock.WithLogger(logger),
		paddock.WithAdmin(demoAdmin),
		paddock.WithOracle(demoOracle),
		paddock.WithMintFee(500),
		paddock.WithClock(clock),
	))
	if err != nil {
		return err
	}
	runErr := make(chan error, 1)
	go func() {
		runErr <- p.Run(context.Background())
	}()
	select {
	case <-p.Ready():
	case err := <-runErr:
		return fmt.Errorf("node exited during startup: %w", err)
	}
	defer func() {
		p.Stop() //nolint:errcheck
		<-runErr
	}()

	// Fund the manufacturer so the mint fee can move
	if err := p.Database().SetAccountBalance(
		demoMaker.String(), 10_000, nil,
	); err != nil {
		return err
	}

	// Mint
	productId, err := p.Registry().Register(
		p.OpContext(demoMaker),
		registry.ProductParams{
			OriginCountry:     "USA",
			Description:       "pallet of network switches",
			Category:          chain.CategoryElectronics,
			BatchSize:         100,
			CertificationHash: demoFingerprint(0x01),
			CreatedAt:         p.Block(),
		},
	)
	if err != nil {
		return fmt.Errorf("register: %w", err)
	}

	// Claim origin, attest, record custody, transfer
	if err := p.Claims().Create(
		p.OpContext(demoMaker),
		productId,
		"origin-certificate",
		demoFingerprint(0x02),
	); err != nil {
		return fmt.Errorf("create claim: %w", err)
	}
	if err := p.Attestation().Attest(
		p.OpContext(demoAuditor),
		productId,
		true,
		"factory inspection passed",
	); err != nil {
		return fmt.Errorf("attest: %w", err)
	}
	if err := p.Custody().Append(
		p.OpContext(demoMaker),
		productId,
		"shipped",
		"Oakland port",
	); err != nil {
		return fmt.Errorf("custody append: %w", err)
	}
	clock.Advance(1)
	if err := p.Registry().Transfer(
		p.OpContext(demoMaker),
		productId,
		demoShipper,
	); err != nil {
		return fmt.Errorf("transfer: %w", err)
	}
	if err := p.Custody().Append(
		p.OpContext(demoShipper),
		productId,
		"received",
		"Rotterdam warehouse",
	); err != nil {
		return fmt.Errorf("custody append: %w", err)
	}

	// Oracle-fed compliance snapshot
	clock.Advance(1)
	if err := p.Compliance().UpdateSnapshot(
		p.OpContext(demoOracle),
		productId,
		"8517.62",
		"none",
		demoFingerprint(0x03),
	); err != nil {
		return fmt.Errorf("update snapshot: %w", err)
	}

	// Print the aggregated trace
	trace, err := p.Trace(productId)
	if err != nil {
		return fmt.Errorf("trace: %w", err)
	}
	out, err := json.MarshalIndent(trace, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(out))

	// Print the audit log
	entries, err := p.AuditTrail(0, 0)
	if err != nil {
		return fmt.Errorf("audit trail: %w", err)
	}
	fmt.Printf("\naudit log (%d entries):\n", len(entries))
	for _, entry := range entries {
		fmt.Printf(
			"  %3d block=%d %s.%s product=%d actor=%s\n",
			entry.ID,
			entry.Block,
			entry.Component,
			entry.Operation,
			entry.ProductID,
			entry.Actor,
		)
	}
	return nil
}

func demoCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "demo",
		Short: "Run a seeded provenance scenario against an in-memory node",
		Run: func(cmd *cobra.Command, args []string) {
			logger := commonRun()
			if err := demoRun(logger); err != nil {
				slog.Error(err.Error())
				os.Exit(1)
			}
		},
	}
	return cmd
}
