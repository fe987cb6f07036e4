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

package metadata

import (
	"log/slog"

	"github.com/blinklabs-io/paddock/database/models"
	"github.com/blinklabs-io/paddock/database/plugin/metadata/sqlite"
	"github.com/blinklabs-io/paddock/database/types"
	"github.com/prometheus/client_golang/prometheus"
	"gorm.io/gorm"
)

// MetadataStore is the interface for the relational side of the registry
// database. Get methods return (nil, nil) when no matching row exists; the
// layer above decides whether a missing row is an error.
type MetadataStore interface {
	// Database
	Close() error
	DB() *gorm.DB
	GetCommitTimestamp() (int64, error)
	SetCommitTimestamp(timestamp int64, txn types.Txn) error
	Transaction() types.Txn

	// Chain parameters
	GetChainParams(txn types.Txn) (*models.ChainParams, error)
	SetChainParams(params *models.ChainParams, txn types.Txn) error

	// Product identities
	AddProduct(product *models.Product, txn types.Txn) error
	GetProduct(productId uint64, txn types.Txn) (*models.Product, error)
	GetProductsByOwner(owner string, txn types.Txn) ([]models.Product, error)
	SetProductOwner(productId uint64, owner string, txn types.Txn) error
	DeleteProduct(productId uint64, txn types.Txn) error

	// Ownership history
	AddOwnershipRecord(record *models.OwnershipRecord, txn types.Txn) error
	GetOwnershipHistory(
		productId uint64,
		txn types.Txn,
	) ([]models.OwnershipRecord, error)

	// Origin claims
	AddClaim(claim *models.OriginClaim, txn types.Txn) error
	GetClaim(productId uint64, txn types.Txn) (*models.OriginClaim, error)
	SetClaimEvidence(
		productId uint64,
		evidenceHash []byte,
		txn types.Txn,
	) error

	// Custody chain
	AddCustodyEvent(event *models.CustodyEvent, txn types.Txn) error
	GetCustodyChain(
		productId uint64,
		txn types.Txn,
	) ([]models.CustodyEvent, error)
	GetCustodyEventCount(productId uint64, txn types.Txn) (int64, error)

	// Attestations
	AddAttestation(attestation *models.Attestation, txn types.Txn) error
	GetAttestations(
		productId uint64,
		txn types.Txn,
	) ([]models.Attestation, error)
	GetAttestationCount(productId uint64, txn types.Txn) (int64, error)

	// Compliance snapshots
	SetComplianceSnapshot(
		snapshot *models.ComplianceSnapshot,
		txn types.Txn,
	) error
	GetComplianceSnapshot(
		productId uint64,
		txn types.Txn,
	) (*models.ComplianceSnapshot, error)

	// Disputes
	AddDispute(dispute *models.Dispute, txn types.Txn) error
	GetDispute(disputeId uint64, txn types.Txn) (*models.Dispute, error)
	GetDisputesByProduct(
		productId uint64,
		txn types.Txn,
	) ([]models.Dispute, error)
	SetDisputeResolved(disputeId uint64, resolved bool, txn types.Txn) error

	// Fee accounts
	GetAccount(principal string, txn types.Txn) (*models.Account, error)
	SetAccountBalance(principal string, balance uint64, txn types.Txn) error

	// Audit log index
	AddAuditRecord(record *models.AuditRecord, txn types.Txn) error
	GetAuditRecords(
		productId uint64,
		txn types.Txn,
	) ([]models.AuditRecord, error)
}

// New returns the metadata plugin selected by name
func New(
	pluginName, dataDir string,
	logger *slog.Logger,
	promRegistry prometheus.Registerer,
) (MetadataStore, error) {
	// For now, this always returns a sqlite plugin
	return sqlite.New(dataDir, logger, promRegistry)
}
