package stremio

import (
	"encoding/json"
)

// AddonDescriptor is the remote service's wire representation of one addon
// in a user's collection.
type AddonDescriptor struct {
	TransportURL  string `json:"transportUrl"`
	TransportName string `json:"transportName"`
}

// RemoteUser is the profile projection returned by the remote service.
type RemoteUser struct {
	ID    string `json:"_id"`
	Email string `json:"email"`
}

// Session is the result of a successful login or registration.
type Session struct {
	AuthKey string     `json:"authKey"`
	User    RemoteUser `json:"user"`
}

// Resource is one declared addon capability. Manifests carry resources
// either as a plain string or as an object with a name field.
type Resource string

func (r *Resource) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		*r = Resource(s)
		return nil
	}
	var obj struct {
		Name string `json:"name"`
	}
	if err := json.Unmarshal(data, &obj); err != nil {
		return err
	}
	*r = Resource(obj.Name)
	return nil
}

// Manifest is an addon manifest document. Raw preserves the full document
// for storage; the typed fields cover what the panel reads from it.
type Manifest struct {
	ID          string     `json:"id"`
	Name        string     `json:"name"`
	Description string     `json:"description"`
	Version     string     `json:"version"`
	Resources   []Resource `json:"resources"`
	Types       []string   `json:"types"`

	Raw json.RawMessage `json:"-"`
}

// ResourceNames returns the declared resources as plain strings.
func (m *Manifest) ResourceNames() []string {
	names := make([]string, 0, len(m.Resources))
	for _, r := range m.Resources {
		names = append(names, string(r))
	}
	return names
}

// BatchError records one failed item of a batch-over-accounts operation.
type BatchError struct {
	Identity string `json:"identity"`
	Message  string `json:"message"`
}

// BatchReport is the aggregate result of a batch-over-accounts operation.
// A partial failure leaves prior successful items applied; there is no
// rollback.
type BatchReport struct {
	Total      int          `json:"total"`
	Successful int          `json:"successful"`
	Failed     int          `json:"failed"`
	Errors     []BatchError `json:"errors"`
}

// Record tallies one item outcome. A nil err counts as a success.
func (r *BatchReport) Record(identity string, err error) {
	r.Total++
	if err == nil {
		r.Successful++
		return
	}
	r.Failed++
	r.Errors = append(r.Errors, BatchError{Identity: identity, Message: err.Error()})
}
