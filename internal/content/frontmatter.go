package content

import (
	"bytes"
	"errors"
)

var errNoFrontMatter = errors.New("missing front matter")

var delimiter = []byte("---")

// splitFrontMatter separates the YAML block enclosed by "---" lines at the
// top of a file from the Markdown body below it.
func splitFrontMatter(data []byte) (meta, body []byte, err error) {
	data = bytes.TrimPrefix(data, []byte("\xef\xbb\xbf"))
	first, ok := cutLine(data)
	if !ok || !bytes.Equal(bytes.TrimSpace(first.line), delimiter) {
		return nil, nil, errNoFrontMatter
	}

	start := first.next
	for pos := start; pos < len(data); {
		l, _ := cutLine(data[pos:])
		if bytes.Equal(bytes.TrimSpace(l.line), delimiter) {
			return data[start:pos], bytes.TrimLeft(data[pos+l.next:], "\r\n"), nil
		}
		pos += l.next
	}
	return nil, nil, errors.New("unterminated front matter")
}

type line struct {
	line []byte
	// next is the offset just past the line terminator.
	next int
}

func cutLine(data []byte) (line, bool) {
	if len(data) == 0 {
		return line{}, false
	}
	if i := bytes.IndexByte(data, '\n'); i >= 0 {
		return line{line: bytes.TrimSuffix(data[:i], []byte("\r")), next: i + 1}, true
	}
	return line{line: data, next: len(data)}, true
}
