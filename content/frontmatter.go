package content

import (
	"bytes"
	"errors"

	"gopkg.in/yaml.v3"
)

// ErrMissingClosingDelimiter indicates the document opened a front matter
// block but never closed it.
var ErrMissingClosingDelimiter = errors.New("front matter start delimiter found but closing delimiter is missing")

// Split separates `---` delimited front matter from the markdown body.
// Both LF and CRLF documents are accepted. If the document does not start
// with a delimiter line, had is false and body is the full input.
func Split(doc []byte) (front, body []byte, had bool, err error) {
	nl := detectNewline(doc)
	open := []byte("---" + nl)
	if !bytes.HasPrefix(doc, open) {
		return nil, doc, false, nil
	}

	start := len(open)
	closeLine := []byte("---" + nl)
	if bytes.HasPrefix(doc[start:], closeLine) {
		return []byte{}, doc[start+len(closeLine):], true, nil
	}
	// A closing delimiter at EOF with no trailing newline.
	if bytes.Equal(doc[start:], []byte("---")) {
		return []byte{}, []byte{}, true, nil
	}

	closeSeq := []byte(nl + "---" + nl)
	idx := bytes.Index(doc[start:], closeSeq)
	if idx < 0 {
		eof := []byte(nl + "---")
		if bytes.HasSuffix(doc[start:], eof) {
			end := len(doc) - len(eof)
			return doc[start : end+len(nl)], []byte{}, true, nil
		}
		return nil, nil, false, ErrMissingClosingDelimiter
	}

	end := start + idx + len(nl)
	return doc[start:end], doc[start+idx+len(closeSeq):], true, nil
}

// frontMatter is the schema of a post header. Pointers distinguish an absent
// key from an empty one.
type frontMatter struct {
	Title       *string  `yaml:"title"`
	Date        *string  `yaml:"date"`
	Description *string  `yaml:"description"`
	Tags        []string `yaml:"tags"`
}

func decodeFrontMatter(front []byte) (frontMatter, error) {
	var fm frontMatter
	if len(bytes.TrimSpace(front)) == 0 {
		return fm, nil
	}
	if err := yaml.Unmarshal(front, &fm); err != nil {
		return fm, err
	}
	return fm, nil
}

// Marshal renders p as a front matter document: the header followed by the
// raw content.
func Marshal(p Post) ([]byte, error) {
	tags := p.Tags
	if tags == nil {
		tags = []string{}
	}
	out := struct {
		Title       string   `yaml:"title"`
		Date        string   `yaml:"date"`
		Description string   `yaml:"description"`
		Tags        []string `yaml:"tags,flow"`
	}{p.Title, p.Date, p.Description, tags}

	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(out); err != nil {
		_ = enc.Close()
		return nil, err
	}
	if err := enc.Close(); err != nil {
		return nil, err
	}

	doc := make([]byte, 0, buf.Len()+len(p.Content)+8)
	doc = append(doc, "---\n"...)
	doc = append(doc, buf.Bytes()...)
	doc = append(doc, "---\n"...)
	doc = append(doc, p.Content...)
	return doc, nil
}

func detectNewline(doc []byte) string {
	if i := bytes.IndexByte(doc, '\n'); i > 0 && doc[i-1] == '\r' {
		return "\r\n"
	}
	return "\n"
}
