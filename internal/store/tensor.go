package store

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/apache/arrow/go/v17/arrow"
	"github.com/apache/arrow/go/v17/arrow/array"
	"github.com/apache/arrow/go/v17/arrow/ipc"
	"github.com/apache/arrow/go/v17/arrow/memory"
	"github.com/nvandessel/compsig/internal/urn"
)

// Tensor metadata keys stored on the Arrow schema.
const (
	metaAgent = "agent"
	metaShape = "shape"
	weightCol = "weight"
)

// Tensor is a dense float64 array in row-major order.
type Tensor struct {
	Name  string
	Shape []int
	Data  []float64
}

// TensorFromUrn captures an urn's weights.
func TensorFromUrn(name string, u *urn.Urn) Tensor {
	return Tensor{Name: name, Shape: u.Shape(), Data: u.Weights()}
}

// Urn rebuilds an urn from the tensor.
func (t Tensor) Urn() (*urn.Urn, error) {
	return urn.FromWeights(t.Shape, t.Data)
}

// WriteTensor writes t as an Arrow IPC file with a single weight column.
// The shape and agent name travel as schema metadata.
func WriteTensor(path string, t Tensor) error {
	size := 1
	for _, d := range t.Shape {
		size *= d
	}
	if size != len(t.Data) {
		return fmt.Errorf("tensor %s: shape %v holds %d values, got %d", t.Name, t.Shape, size, len(t.Data))
	}

	mem := memory.NewGoAllocator()
	md := arrow.NewMetadata(
		[]string{metaAgent, metaShape},
		[]string{t.Name, formatShape(t.Shape)},
	)
	schema := arrow.NewSchema([]arrow.Field{
		{Name: weightCol, Type: arrow.PrimitiveTypes.Float64},
	}, &md)

	b := array.NewFloat64Builder(mem)
	defer b.Release()
	b.AppendValues(t.Data, nil)
	col := b.NewFloat64Array()
	defer col.Release()

	rec := array.NewRecord(schema, []arrow.Array{col}, int64(col.Len()))
	defer rec.Release()

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating tensor file: %w", err)
	}
	defer f.Close()

	w, err := ipc.NewFileWriter(f, ipc.WithSchema(schema), ipc.WithAllocator(mem))
	if err != nil {
		return fmt.Errorf("creating arrow writer: %w", err)
	}
	if err := w.Write(rec); err != nil {
		w.Close()
		return fmt.Errorf("writing tensor %s: %w", t.Name, err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("closing arrow writer: %w", err)
	}
	return f.Close()
}

// ReadTensor reads a tensor written by WriteTensor.
func ReadTensor(path string) (Tensor, error) {
	f, err := os.Open(path)
	if err != nil {
		return Tensor{}, fmt.Errorf("opening tensor file: %w", err)
	}
	defer f.Close()

	r, err := ipc.NewFileReader(f, ipc.WithAllocator(memory.NewGoAllocator()))
	if err != nil {
		return Tensor{}, fmt.Errorf("reading arrow file: %w", err)
	}
	defer r.Close()

	md := r.Schema().Metadata()
	t := Tensor{}
	if i := md.FindKey(metaAgent); i >= 0 {
		t.Name = md.Values()[i]
	}
	i := md.FindKey(metaShape)
	if i < 0 {
		return Tensor{}, fmt.Errorf("tensor file %s has no shape metadata", path)
	}
	if t.Shape, err = parseShape(md.Values()[i]); err != nil {
		return Tensor{}, err
	}

	for n := 0; n < r.NumRecords(); n++ {
		rec, err := r.Record(n)
		if err != nil {
			return Tensor{}, fmt.Errorf("reading record %d: %w", n, err)
		}
		col, ok := rec.Column(0).(*array.Float64)
		if !ok {
			return Tensor{}, fmt.Errorf("tensor file %s: column %q is %s, want float64",
				path, rec.ColumnName(0), rec.Column(0).DataType())
		}
		t.Data = append(t.Data, col.Float64Values()...)
	}

	size := 1
	for _, d := range t.Shape {
		size *= d
	}
	if size != len(t.Data) {
		return Tensor{}, fmt.Errorf("tensor file %s: shape %v holds %d values, got %d", path, t.Shape, size, len(t.Data))
	}
	return t, nil
}

func formatShape(shape []int) string {
	parts := make([]string, len(shape))
	for i, d := range shape {
		parts[i] = strconv.Itoa(d)
	}
	return strings.Join(parts, ",")
}

func parseShape(s string) ([]int, error) {
	if s == "" {
		return nil, fmt.Errorf("empty tensor shape")
	}
	parts := strings.Split(s, ",")
	shape := make([]int, len(parts))
	for i, p := range parts {
		d, err := strconv.Atoi(strings.TrimSpace(p))
		if err != nil || d <= 0 {
			return nil, fmt.Errorf("invalid tensor shape %q", s)
		}
		shape[i] = d
	}
	return shape, nil
}
