package document

import (
	"github.com/sergi/go-diff/diffmatchpatch"
)

// Sync brings the document text in line with text by applying the minimal
// set of replacements a character diff finds, so observers only see the
// regions that actually changed. It returns the applied edits in order.
func (d *Document) Sync(text string) ([]Edit, error) {
	if text == d.text {
		return nil, nil
	}

	dmp := diffmatchpatch.New()
	diffs := dmp.DiffMain(d.text, text, false)
	diffs = dmp.DiffCleanupSemantic(diffs)

	var edits []Edit
	pos := 0
	for i := 0; i < len(diffs); i++ {
		df := diffs[i]
		switch df.Type {
		case diffmatchpatch.DiffEqual:
			pos += len(df.Text)
		case diffmatchpatch.DiffDelete:
			insert := ""
			// a delete directly followed by an insert is one replacement
			if i+1 < len(diffs) && diffs[i+1].Type == diffmatchpatch.DiffInsert {
				insert = diffs[i+1].Text
				i++
			}
			e, err := d.Replace(pos, pos+len(df.Text), insert)
			if err != nil {
				return edits, err
			}
			edits = append(edits, e)
			pos = e.NewEnd
		case diffmatchpatch.DiffInsert:
			e, err := d.Replace(pos, pos, df.Text)
			if err != nil {
				return edits, err
			}
			edits = append(edits, e)
			pos = e.NewEnd
		}
	}
	return edits, nil
}
