package history

import (
	"io"
	"time"

	"gopkg.in/yaml.v3"
)

type dumpEdit struct {
	Kind   string `yaml:"kind"`
	Target int64  `yaml:"target"`
	Edit   Edit   `yaml:"edit"`
}

type dumpEntry struct {
	ID    string     `yaml:"id"`
	Label string     `yaml:"label"`
	Time  time.Time  `yaml:"time"`
	Redo  []dumpEdit `yaml:"redo"`
	Undo  []dumpEdit `yaml:"undo"`
}

type dumpLog struct {
	Undo []dumpEntry `yaml:"undo"`
	Redo []dumpEntry `yaml:"redo"`
}

func dumpEdits(edits []Edit) []dumpEdit {
	result := make([]dumpEdit, len(edits))
	for i, e := range edits {
		result[i] = dumpEdit{Kind: e.Kind(), Target: int64(e.Target()), Edit: e}
	}
	return result
}

func dumpEntries(entries []*undoEntry) []dumpEntry {
	result := make([]dumpEntry, len(entries))
	for i, entry := range entries {
		result[i] = dumpEntry{
			ID:    entry.id.String(),
			Label: entry.label,
			Time:  entry.timestamp,
			Redo:  dumpEdits(entry.seq.RedoEdits()),
			Undo:  dumpEdits(entry.seq.UndoEdits()),
		}
	}
	return result
}

// Dump writes the undo and redo stacks as YAML, oldest entry first.
// Edits are serialized through their exported fields.
func (h *History) Dump(w io.Writer) error {
	h.mu.Lock()
	log := dumpLog{
		Undo: dumpEntries(h.undoStack),
		Redo: dumpEntries(h.redoStack),
	}
	h.mu.Unlock()

	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(log); err != nil {
		return err
	}
	return enc.Close()
}
