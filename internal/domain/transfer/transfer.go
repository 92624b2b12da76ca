// internal/domain/transfer/transfer.go
package transfer

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strings"
)

// StatusFinished is the AirDC++ status id of a completed transfer.
const StatusFinished = "finished"

// ID is the transfer identifier. AirDC++ sends a number, older builds a string.
type ID string

// UnmarshalJSON accepts both numeric and string ids.
func (id *ID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*id = ""
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*id = ID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("transfer id: %w", err)
	}
	if n.String() == "0" {
		*id = ""
		return nil
	}
	*id = ID(n.String())
	return nil
}

// Status is the transfer state as reported by the API.
type Status struct {
	ID  string `json:"id"`
	Str string `json:"str"`
}

// User identifies the remote peer of a transfer.
type User struct {
	Nicks    string `json:"nicks"`
	HubNames string `json:"hub_names"`
}

// Transfer mirrors one entry of GET /api/v1/transfers.
type Transfer struct {
	ID               ID      `json:"id"`
	Name             string  `json:"name"`
	Download         *bool   `json:"download"`
	Status           *Status `json:"status"`
	User             *User   `json:"user"`
	Size             int64   `json:"size"`
	BytesTransferred int64   `json:"bytes_transferred"`
	Speed            int64   `json:"speed"`
}

// IsUpload reports whether the transfer is an upload. A missing download flag
// is treated as a download.
func (t Transfer) IsUpload() bool {
	return t.Download != nil && !*t.Download
}

// DisplayName is the name with surrounding whitespace removed.
func (t Transfer) DisplayName() string {
	return strings.TrimSpace(t.Name)
}

// Ignored reports transfers that never produce a notification: those without
// an id or name, and file list transfers.
func (t Transfer) Ignored() bool {
	name := t.DisplayName()
	if t.ID == "" || name == "" {
		return true
	}
	return strings.Contains(strings.ToLower(name), "file list")
}

// Key uniquely identifies the transfer across polls.
func (t Transfer) Key() string {
	return fmt.Sprintf("%s_%s", t.ID, t.DisplayName())
}

// StatusID returns status.id or "" when absent.
func (t Transfer) StatusID() string {
	if t.Status == nil {
		return ""
	}
	return t.Status.ID
}

// StatusText returns status.str or "" when absent.
func (t Transfer) StatusText() string {
	if t.Status == nil {
		return ""
	}
	return t.Status.Str
}

// Progress returns the completed percentage, or 0 for unknown sizes.
func (t Transfer) Progress() float64 {
	if t.Size <= 0 {
		return 0
	}
	return float64(t.BytesTransferred) / float64(t.Size) * 100
}

// Fetcher lists the transfers currently known to the client.
type Fetcher interface {
	ListTransfers(ctx context.Context) ([]Transfer, error)
}
