package persist

import (
	"context"
	"os"
	"path/filepath"
	"reflect"
	"sort"
	"sync"
	"testing"

	"github.com/sbinet/npyio/npy"

	"github.com/Adithya-Monish-Kumar-K/Dataset-Ingestion-Platform/internal/dataset"
	"github.com/Adithya-Monish-Kumar-K/Dataset-Ingestion-Platform/internal/dataset/tensor"
)

func sampleSplit(fill float64) *dataset.Split {
	s := &dataset.Split{
		XTrain: tensor.New(4, 2, 2, 1),
		XTest:  tensor.New(1, 2, 2, 1),
		YTrain: tensor.New(4, 2),
		YTest:  tensor.New(1, 2),
	}
	for _, a := range []*tensor.Array{s.XTrain, s.XTest} {
		for i := range a.Data {
			a.Data[i] = fill
		}
	}
	return s
}

func TestWriteLayout(t *testing.T) {
	root := t.TempDir()
	p := New(root)
	dir, err := p.Write(context.Background(), "mnist", sampleSplit(0.5), []string{"0", "1"})
	if err != nil {
		t.Fatal(err)
	}
	if dir != filepath.Join(root, "mnist") {
		t.Errorf("dir = %s", dir)
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatal(err)
	}
	var names []string
	for _, e := range entries {
		names = append(names, e.Name())
	}
	sort.Strings(names)
	want := []string{"classes.json", "x_test.npy", "x_train.npy", "y_test.npy", "y_train.npy"}
	if !reflect.DeepEqual(names, want) {
		t.Fatalf("files = %v, want %v", names, want)
	}

	f, err := os.Open(filepath.Join(dir, "x_train.npy"))
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	r, err := npy.NewReader(f)
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(r.Header.Descr.Shape, []int{4, 2, 2, 1}) {
		t.Errorf("shape = %v", r.Header.Descr.Shape)
	}

	classes, err := ReadClasses(dir)
	if err != nil || !reflect.DeepEqual(classes, []string{"0", "1"}) {
		t.Errorf("classes = %v, %v", classes, err)
	}
}

func TestWriteRejectsPathLikeIDs(t *testing.T) {
	p := New(t.TempDir())
	for _, id := range []string{"", ".", "..", "a/b", "../escape"} {
		if _, err := p.Write(context.Background(), id, sampleSplit(1), nil); err == nil {
			t.Errorf("id %q should be rejected", id)
		}
	}
}

func TestConcurrentWritesSameID(t *testing.T) {
	root := t.TempDir()
	p := New(root)
	var wg sync.WaitGroup
	for i := range 8 {
		wg.Add(1)
		go func(fill float64) {
			defer wg.Done()
			if _, err := p.Write(context.Background(), "shared", sampleSplit(fill), []string{"a", "b"}); err != nil {
				t.Error(err)
			}
		}(float64(i) / 8)
	}
	wg.Wait()

	entries, _ := os.ReadDir(filepath.Join(root, "shared"))
	if len(entries) != 5 {
		t.Errorf("expected no leftover temp files, found %d entries", len(entries))
	}
}
