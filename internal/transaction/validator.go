// internal/transaction/validator.go
package transaction

import (
	"encoding/base64"
	"fmt"
	"strings"

	bin "github.com/gagliardetto/binary"
	"github.com/gagliardetto/solana-go"
	"go.uber.org/zap"
)

// Validator проверяет только структуру подписанной транзакции, не её смысл.
type Validator struct {
	logger *zap.Logger
}

func NewValidator(logger *zap.Logger) *Validator {
	return &Validator{
		logger: logger.Named("tx-validator"),
	}
}

// Decode разбирает base64 и проверяет, что транзакция подписана и полна.
func (v *Validator) Decode(signedTx string) (*solana.Transaction, error) {
	raw, err := base64.StdEncoding.DecodeString(strings.TrimSpace(signedTx))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidEncoding, err)
	}
	if len(raw) == 0 {
		return nil, fmt.Errorf("%w: empty payload", ErrInvalidEncoding)
	}

	tx, err := solana.TransactionFromDecoder(bin.NewBinDecoder(raw))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidEncoding, err)
	}

	if err := v.ValidateTransaction(tx); err != nil {
		v.logger.Debug("transaction failed structural checks", zap.Error(err))
		return nil, err
	}
	return tx, nil
}

func (v *Validator) ValidateTransaction(tx *solana.Transaction) error {
	if err := v.ValidateSignatures(tx); err != nil {
		return err
	}
	if err := v.ValidateBlockhash(tx); err != nil {
		return err
	}
	return v.ValidateInstructions(tx.Message.Instructions)
}

func (v *Validator) ValidateSignatures(tx *solana.Transaction) error {
	if len(tx.Signatures) == 0 {
		return ErrInvalidSignature
	}
	if len(tx.Signatures) != int(tx.Message.Header.NumRequiredSignatures) {
		return fmt.Errorf("%w: have %d signatures, need %d",
			ErrInvalidSignature, len(tx.Signatures), tx.Message.Header.NumRequiredSignatures)
	}
	for i, sig := range tx.Signatures {
		if sig == (solana.Signature{}) {
			return fmt.Errorf("%w: signature %d is empty", ErrInvalidSignature, i)
		}
	}
	return nil
}

func (v *Validator) ValidateBlockhash(tx *solana.Transaction) error {
	if tx.Message.RecentBlockhash == (solana.Hash{}) {
		return ErrInvalidBlockhash
	}
	return nil
}

func (v *Validator) ValidateInstructions(instructions []solana.CompiledInstruction) error {
	if len(instructions) == 0 {
		return ErrInvalidInstruction
	}
	return nil
}
