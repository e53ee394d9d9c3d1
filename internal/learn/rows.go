package learn

import "github.com/james-bowman/sparse"

// rowDot returns row i of x dotted with the dense vector w.
func rowDot(x *sparse.CSR, i int, w []float64) float64 {
	var sum float64
	x.DoRowNonZero(i, func(_, j int, v float64) {
		sum += v * w[j]
	})
	return sum
}

// addScaledRow adds alpha times row i of x to dst.
func addScaledRow(dst []float64, alpha float64, x *sparse.CSR, i int) {
	x.DoRowNonZero(i, func(_, j int, v float64) {
		dst[j] += alpha * v
	})
}

// subsetRows copies the given rows of x, in order, into a new matrix with the
// same number of columns.
func subsetRows(x *sparse.CSR, rows []int) *sparse.CSR {
	raw := x.RawMatrix()
	indptr := make([]int, 1, len(rows)+1)
	var nnz int
	for _, r := range rows {
		nnz += raw.Indptr[r+1] - raw.Indptr[r]
	}
	ind := make([]int, 0, nnz)
	data := make([]float64, 0, nnz)
	for _, r := range rows {
		lo, hi := raw.Indptr[r], raw.Indptr[r+1]
		ind = append(ind, raw.Ind[lo:hi]...)
		data = append(data, raw.Data[lo:hi]...)
		indptr = append(indptr, len(ind))
	}
	return sparse.NewCSR(len(rows), raw.J, indptr, ind, data)
}
