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

package database

import (
	"fmt"

	"github.com/blinklabs-io/paddock/database/models"
)

// InsufficientFundsError is returned when an account transfer would drive
// the source balance below zero
type InsufficientFundsError struct {
	Principal string
	Balance   uint64
	Amount    uint64
}

func (e InsufficientFundsError) Error() string {
	return fmt.Sprintf(
		"insufficient funds: account %s holds %d, transfer requires %d",
		e.Principal,
		e.Balance,
		e.Amount,
	)
}

// GetAccount returns the account record for the given principal
func (d *Database) GetAccount(
	principal string,
	txn *Txn,
) (*models.Account, error) {
	if txn == nil {
		txn = d.MetadataTxn(false)
		defer txn.Release()
	}
	account, err := d.metadata.GetAccount(principal, txn.Metadata())
	if err != nil {
		return nil, fmt.Errorf("failed to get account %s: %w", principal, err)
	}
	if account == nil {
		return nil, models.ErrAccountNotFound
	}
	return account, nil
}

// SetAccountBalance creates or updates the balance for the given principal
func (d *Database) SetAccountBalance(
	principal string,
	balance uint64,
	txn *Txn,
) error {
	owned := false
	if txn == nil {
		txn = d.MetadataTxn(true)
		owned = true
		defer func() {
			if owned {
				txn.Rollback() //nolint:errcheck
			}
		}()
	}
	if err := d.metadata.SetAccountBalance(principal, balance, txn.Metadata()); err != nil {
		return fmt.Errorf(
			"failed to set balance for account %s: %w",
			principal,
			err,
		)
	}
	if owned {
		if err := txn.Commit(); err != nil {
			return fmt.Errorf("commit transaction: %w", err)
		}
		owned = false
	}
	return nil
}

// TransferFunds moves amount from one account to another. The source
// account must exist and hold at least amount. The destination account is
// created when it does not exist yet. Both balance updates happen in the
// same transaction
func (d *Database) TransferFunds(
	from string,
	to string,
	amount uint64,
	txn *Txn,
) error {
	owned := false
	if txn == nil {
		txn = d.MetadataTxn(true)
		owned = true
		defer func() {
			if owned {
				txn.Rollback() //nolint:errcheck
			}
		}()
	}
	fromAccount, err := d.metadata.GetAccount(from, txn.Metadata())
	if err != nil {
		return fmt.Errorf("failed to get account %s: %w", from, err)
	}
	if fromAccount == nil {
		return models.ErrAccountNotFound
	}
	fromBalance := uint64(fromAccount.Balance)
	if fromBalance < amount {
		return InsufficientFundsError{
			Principal: from,
			Balance:   fromBalance,
			Amount:    amount,
		}
	}
	// Self-transfer is a funded no-op, never a credit
	if from == to {
		if owned {
			if err := txn.Commit(); err != nil {
				return fmt.Errorf("commit transaction: %w", err)
			}
			owned = false
		}
		return nil
	}
	var toBalance uint64
	toAccount, err := d.metadata.GetAccount(to, txn.Metadata())
	if err != nil {
		return fmt.Errorf("failed to get account %s: %w", to, err)
	}
	if toAccount != nil {
		toBalance = uint64(toAccount.Balance)
	}
	if err := d.metadata.SetAccountBalance(from, fromBalance-amount, txn.Metadata()); err != nil {
		return fmt.Errorf("failed to debit account %s: %w", from, err)
	}
	if err := d.metadata.SetAccountBalance(to, toBalance+amount, txn.Metadata()); err != nil {
		return fmt.Errorf("failed to credit account %s: %w", to, err)
	}
	if owned {
		if err := txn.Commit(); err != nil {
			return fmt.Errorf("commit transaction: %w", err)
		}
		owned = false
	}
	return nil
}
