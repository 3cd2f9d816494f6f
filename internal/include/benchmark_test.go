package include

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/juev/hledger-complete/internal/testutil"
)

var (
	smallJournal  = testutil.GenerateJournal(10)
	mediumJournal = testutil.GenerateJournal(100)
	largeJournal  = testutil.GenerateJournal(1000)
)

func setupSingleFile(b *testing.B, content string) string {
	b.Helper()
	tmpDir := b.TempDir()
	path := filepath.Join(tmpDir, "test.journal")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		b.Fatal(err)
	}
	return path
}

// benchmarkCold reparses every file on each iteration.
func benchmarkCold(b *testing.B, path string) {
	b.Helper()
	loader := NewLoader()
	ctx := context.Background()

	b.ReportAllocs()
	b.ResetTimer()
	for b.Loop() {
		loader.ClearCache()
		if _, err := loader.Load(ctx, path); err != nil {
			b.Fatal(err)
		}
	}
}

func BenchmarkLoader_Load_Small(b *testing.B) {
	benchmarkCold(b, setupSingleFile(b, smallJournal))
}

func BenchmarkLoader_Load_Medium(b *testing.B) {
	benchmarkCold(b, setupSingleFile(b, mediumJournal))
}

func BenchmarkLoader_Load_Large(b *testing.B) {
	benchmarkCold(b, setupSingleFile(b, largeJournal))
}

func BenchmarkLoader_Load_Large_Cached(b *testing.B) {
	path := setupSingleFile(b, largeJournal)
	loader := NewLoader()
	ctx := context.Background()

	b.ResetTimer()
	for b.Loop() {
		loader.Load(ctx, path)
	}
}

func setupIncludeTree(b *testing.B, numFiles int) string {
	b.Helper()
	tmpDir := b.TempDir()
	mainPath, err := testutil.GenerateIncludeTree(tmpDir, numFiles, 20)
	if err != nil {
		b.Fatal(err)
	}
	return mainPath
}

func BenchmarkLoader_Load_IncludeTree_5Files(b *testing.B) {
	benchmarkCold(b, setupIncludeTree(b, 5))
}

func BenchmarkLoader_Load_IncludeTree_20Files(b *testing.B) {
	benchmarkCold(b, setupIncludeTree(b, 20))
}

func BenchmarkLoader_Load_IncludeTree_20Files_Merged(b *testing.B) {
	mainPath := setupIncludeTree(b, 20)
	loader := NewLoader()
	ctx := context.Background()
	if _, err := loader.Load(ctx, mainPath); err != nil {
		b.Fatal(err)
	}

	b.ReportAllocs()
	b.ResetTimer()
	for b.Loop() {
		result, _ := loader.Load(ctx, mainPath)
		result.Data()
	}
}
