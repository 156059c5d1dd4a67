package compliance

import (
	"io"

	"github.com/ternarybob/scimdash/internal/interfaces"
)

// progressReader reports download progress as bytes are read. Callbacks only fire when the
// percentage changes.
type progressReader struct {
	r        io.Reader
	total    int64
	loaded   int64
	last     int
	onUpdate interfaces.ProgressFunc
}

func newProgressReader(r io.Reader, total int64, onUpdate interfaces.ProgressFunc) io.Reader {
	if onUpdate == nil || total <= 0 {
		return r
	}
	return &progressReader{r: r, total: total, last: -1, onUpdate: onUpdate}
}

func (p *progressReader) Read(buf []byte) (int, error) {
	n, err := p.r.Read(buf)
	if n > 0 {
		p.loaded += int64(n)
		percent := int(p.loaded * 100 / p.total)
		if percent > 100 {
			percent = 100
		}
		if percent != p.last {
			p.last = percent
			p.onUpdate(percent)
		}
	}
	return n, err
}
