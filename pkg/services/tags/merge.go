package tags

import "github.com/de-tools/lakespend/pkg/models/domain"

// Merge computes the tags a resource should carry after applying requested with op.
// It reads only its arguments and never returns a map aliasing either of them.
//
//   - replace: the result is requested.
//   - remove: the result is current without any key of requested, whatever its value.
//   - merge: the result is current overlaid with requested.
func Merge(current, requested domain.TagMap, op domain.Operation) domain.TagMap {
	switch op {
	case domain.OperationReplace:
		return requested.Clone()
	case domain.OperationRemove:
		out := current.Clone()
		for k := range requested {
			delete(out, k)
		}
		return out
	default:
		out := current.Clone()
		for k, v := range requested {
			out[k] = v
		}
		return out
	}
}
