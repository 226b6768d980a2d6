package ledger

import (
	"encoding/json"

	"go.uber.org/zap"
)

// RecordKind identifies this application's custom-data operations
const RecordKind = "ipfs_upload"

// Provenance links an uploaded artifact to its owner once it is on the ledger
type Provenance struct {
	Message      string `json:"message"`
	IPFSHash     string `json:"ipfsHash"`
	FileName     string `json:"fileName"`
	UploadedDate string `json:"uploadedDate"`
}

var provenanceFields = []string{"message", "ipfsHash", "fileName", "uploadedDate"}

// ProvenanceRecord is a provenance payload with the transaction that carried it
type ProvenanceRecord struct {
	Transaction
	Provenance
}

// FilterProvenance keeps the transactions that are provenance records of
// recordKind, preserving their order. Malformed payloads are dropped.
func FilterProvenance(txs []Transaction, recordKind string) []ProvenanceRecord {
	records := []ProvenanceRecord{}

	for _, tx := range txs {
		op, ok := tx.Op.CustomJSON()
		if !ok || op.ID != recordKind {
			continue
		}

		p, err := ParseProvenance(op.JSON)
		if err != nil {
			zap.L().Debug("Skipping malformed provenance payload", zap.String("trx_id", tx.TrxID), zap.Error(err))
			continue
		}

		records = append(records, ProvenanceRecord{Transaction: tx, Provenance: *p})
	}

	return records
}

// ParseProvenance decodes a payload and requires every provenance field
func ParseProvenance(payload string) (*Provenance, error) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal([]byte(payload), &fields); err != nil {
		return nil, err
	}

	for _, f := range provenanceFields {
		if _, ok := fields[f]; !ok {
			return nil, &MissingFieldError{Field: f}
		}
	}

	var p Provenance
	if err := json.Unmarshal([]byte(payload), &p); err != nil {
		return nil, err
	}

	return &p, nil
}

type MissingFieldError struct {
	Field string
}

func (e *MissingFieldError) Error() string {
	return "provenance payload is missing " + e.Field
}
