package logger

import (
	"sync"
	"testing"
)

func TestLIsNeverNil(t *testing.T) {
	if L() == nil {
		t.Fatal("L() returned nil before Init")
	}
	Init("development", "debug")
	if L() == nil {
		t.Fatal("L() returned nil after Init")
	}
}

func TestLConcurrentBeforeInit(t *testing.T) {
	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			L().Debug("concurrent access")
		}()
	}
	wg.Wait()
}
