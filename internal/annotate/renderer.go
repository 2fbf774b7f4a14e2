package annotate

import (
	"go.uber.org/zap"

	"github.com/tmarkley/marginalia/pkg/models"
)

// Renderer caches the annotated buffer for the last (buffer,
// annotations) pair. Rendering with unchanged inputs must return the
// identical string: the host skips re-flattening when the output is
// unchanged, which is what keeps a live selection alive across
// unrelated re-renders. This is a correctness requirement, not a
// performance tweak.
type Renderer struct {
	log *zap.Logger

	buffer      string
	annotations []models.Annotation
	out         string
	valid       bool
}

// NewRenderer creates a renderer. log may be nil.
func NewRenderer(log *zap.Logger) *Renderer {
	if log == nil {
		log = zap.NewNop()
	}
	return &Renderer{log: log}
}

// Render returns the annotated buffer, reusing the cached output when
// both inputs are unchanged by value.
func (r *Renderer) Render(buffer string, annotations []models.Annotation) string {
	if r.valid && buffer == r.buffer && sameAnnotations(annotations, r.annotations) {
		return r.out
	}
	r.buffer = buffer
	r.annotations = make([]models.Annotation, len(annotations))
	copy(r.annotations, annotations)
	r.out = Apply(buffer, annotations, r.log)
	r.valid = true
	return r.out
}

// Invalidate drops the cache; the next Render recomputes.
func (r *Renderer) Invalidate() {
	r.valid = false
}

func sameAnnotations(a, b []models.Annotation) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
