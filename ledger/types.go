package ledger

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

const timeLayout = "2006-01-02T15:04:05"

// Time is a ledger timestamp. The RPC sends them in UTC without a zone suffix.
type Time struct {
	time.Time
}

func (t *Time) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}

	if s == "" {
		t.Time = time.Time{}
		return nil
	}

	parsed, err := time.ParseInLocation(timeLayout, strings.TrimSuffix(s, "Z"), time.UTC)
	if err != nil {
		return fmt.Errorf("invalid ledger timestamp %q, %w", s, err)
	}

	t.Time = parsed
	return nil
}

func (t Time) MarshalJSON() ([]byte, error) {
	return json.Marshal(t.UTC().Format(timeLayout))
}

// Account is the part of an account snapshot the client shows
type Account struct {
	ID                  int64  `json:"id"`
	Name                string `json:"name"`
	Created             Time   `json:"created"`
	Balance             string `json:"balance"`
	HBDBalance          string `json:"hbd_balance"`
	VestingShares       string `json:"vesting_shares"`
	PostCount           int64  `json:"post_count"`
	PostingJSONMetadata string `json:"posting_json_metadata"`
}

// Transaction is one entry of an account history. TrxID is assigned by the
// ledger and is the same for every operation of a transaction.
type Transaction struct {
	Index     int64     `json:"-"`
	TrxID     string    `json:"trx_id"`
	Block     int64     `json:"block"`
	Timestamp Time      `json:"timestamp"`
	Op        Operation `json:"op"`
}

// Operation is a tagged union keyed by the operation name. Type is the bare
// name, e.g. "custom_json", whichever form the endpoint used.
type Operation struct {
	Type  string
	Value json.RawMessage
}

func (o *Operation) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)

	if len(data) > 0 && data[0] == '[' {
		// condenser form: ["custom_json", {...}]
		var pair []json.RawMessage
		if err := json.Unmarshal(data, &pair); err != nil {
			return err
		}
		if len(pair) != 2 {
			return fmt.Errorf("operation has %d elements, want 2", len(pair))
		}

		if err := json.Unmarshal(pair[0], &o.Type); err != nil {
			return err
		}
		o.Value = pair[1]
	} else {
		// appbase form: {"type": "custom_json_operation", "value": {...}}
		var obj struct {
			Type  string          `json:"type"`
			Value json.RawMessage `json:"value"`
		}
		if err := json.Unmarshal(data, &obj); err != nil {
			return err
		}

		o.Type = obj.Type
		o.Value = obj.Value
	}

	o.Type = strings.TrimSuffix(o.Type, "_operation")
	return nil
}

func (o Operation) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Type  string          `json:"type"`
		Value json.RawMessage `json:"value"`
	}{o.Type + "_operation", o.Value})
}

// CustomJSON is the custom-data operation used to record uploads
type CustomJSON struct {
	RequiredAuths        []string `json:"required_auths"`
	RequiredPostingAuths []string `json:"required_posting_auths"`
	ID                   string   `json:"id"`
	JSON                 string   `json:"json"`
}

// CustomJSON decodes the operation value if it is a custom-data operation
func (o Operation) CustomJSON() (*CustomJSON, bool) {
	if o.Type != "custom_json" {
		return nil, false
	}

	var c CustomJSON
	if err := json.Unmarshal(o.Value, &c); err != nil {
		return nil, false
	}

	return &c, true
}
