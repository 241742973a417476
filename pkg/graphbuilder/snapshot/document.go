package snapshot

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/randalmurphal/graphbuilder/pkg/graphbuilder"
)

// ErrUnchanged is returned by SaveDocument when the document's fingerprint
// matches the latest revision.
var ErrUnchanged = errors.New("snapshot unchanged")

type envelope struct {
	Fingerprint string                 `json:"fingerprint"`
	Document    *graphbuilder.Document `json:"document"`
}

// SaveDocument stores doc as the next revision of its project (doc.Name).
// When the latest revision has the same graph fingerprint and entry, nothing
// is written and the latest Info is returned with ErrUnchanged. The
// fingerprint is taken over the normalized graph, so documents stored as
// read (declared roles not yet applied) compare by what generation sees.
func SaveDocument(s Store, doc *graphbuilder.Document) (Info, error) {
	if doc == nil || doc.Name == "" {
		return Info{}, ErrEmptyProject
	}
	normalized := graphbuilder.Normalize(doc.Graph())
	env := envelope{Fingerprint: graphbuilder.Fingerprint(normalized), Document: doc}

	info, data, err := s.Latest(doc.Name)
	switch {
	case err == nil:
		var prev envelope
		if json.Unmarshal(data, &prev) == nil && prev.Document != nil &&
			prev.Fingerprint == env.Fingerprint && prev.Document.Entry == doc.Entry {
			return info, ErrUnchanged
		}
	case !errors.Is(err, ErrNotFound):
		return Info{}, err
	}

	data, err = json.Marshal(env)
	if err != nil {
		return Info{}, fmt.Errorf("encode document: %w", err)
	}
	return s.Save(doc.Name, data)
}

// LoadDocument decodes a stored revision. Revision 0 selects the latest.
func LoadDocument(s Store, project string, revision int64) (*graphbuilder.Document, Info, error) {
	var (
		info Info
		data []byte
		err  error
	)
	if revision == 0 {
		info, data, err = s.Latest(project)
	} else {
		info = Info{Project: project, Revision: revision}
		data, err = s.Load(project, revision)
		info.Size = int64(len(data))
	}
	if err != nil {
		return nil, Info{}, err
	}

	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, Info{}, fmt.Errorf("decode %s revision %d: %w", project, info.Revision, err)
	}
	if env.Document == nil {
		return nil, Info{}, fmt.Errorf("decode %s revision %d: no document", project, info.Revision)
	}
	return env.Document, info, nil
}
