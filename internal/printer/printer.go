// Package printer renders fixed-width, multi-object summaries for commands
// that act on more than one Kubernetes object at a time, such as a region-
// wide reconcile sweep.
package printer

import (
	"fmt"

	"sigs.k8s.io/cli-utils/pkg/object"
)

// Len holds the column widths needed to print a list of objects as an
// aligned table: the "kind/name" column and the namespace column.
type Len struct {
	KindNameMaxLen  int
	NamespaceMaxLen int
}

// CalcLen measures the widest "kind/name" and namespace strings across
// resources, so ReportLine can pad every row to the same width.
func CalcLen(resources []object.ObjMetadata) *Len {
	k := 0
	n := 0
	for _, r := range resources {
		// kind/name
		kn := fmt.Sprintf("%s/%s", r.GroupKind.Kind, r.Name)
		if len(kn) > k {
			k = len(kn)
		}
		// namespace
		ns := r.Namespace
		if ns == "" {
			ns = "(cluster)"
		}
		if len(ns) > n {
			n = len(ns)
		}
	}
	return &Len{
		KindNameMaxLen:  k,
		NamespaceMaxLen: n,
	}
}

// ReportLine renders one row of a multi-object summary: obj's kind/name and
// namespace padded to l's widths, followed by a free-form status word.
func ReportLine(l *Len, obj object.ObjMetadata, status string) string {
	kn := fmt.Sprintf("%s/%s", obj.GroupKind.Kind, obj.Name)
	ns := obj.Namespace
	if ns == "" {
		ns = "(cluster)"
	}
	return fmt.Sprintf("%-*s  %-*s  %s", l.KindNameMaxLen, kn, l.NamespaceMaxLen, ns, status)
}
