package session

import (
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/contrib-ai/virtual-contributor-engine/internal/model"
)

func TestStoreAppendAndGet(t *testing.T) {
	s := NewStore(10)

	s.Append("user-1", model.Turn{Role: model.RoleHuman, Content: "hi"})
	s.Append("user-1", model.Turn{Role: model.RoleAssistant, Content: "hello"})

	got := s.Get("user-1")
	require.Len(t, got, 2)
	assert.Equal(t, model.RoleHuman, got[0].Role)
	assert.Equal(t, "hello", got[1].Content)

	assert.Empty(t, s.Get("user-2"))
}

func TestStoreEvictsBeyondWindow(t *testing.T) {
	s := NewStore(4)

	for i := 0; i < 6; i++ {
		s.Append("user-1", model.Turn{Role: model.RoleHuman, Content: fmt.Sprintf("m%d", i)})
	}

	got := s.Get("user-1")
	require.Len(t, got, 4)
	assert.Equal(t, "m2", got[0].Content)
	assert.Equal(t, "m5", got[3].Content)
}

func TestStoreClear(t *testing.T) {
	s := NewStore(10)

	s.Append("user-1", model.Turn{Role: model.RoleHuman, Content: "hi"})
	s.Append("user-2", model.Turn{Role: model.RoleHuman, Content: "hey"})
	s.Clear("user-1")

	assert.Empty(t, s.Get("user-1"))
	assert.Len(t, s.Get("user-2"), 1)
}

func TestStoreGetReturnsCopy(t *testing.T) {
	s := NewStore(10)
	s.Append("user-1", model.Turn{Role: model.RoleHuman, Content: "hi"})

	got := s.Get("user-1")
	got[0].Content = "mutated"

	assert.Equal(t, "hi", s.Get("user-1")[0].Content)
}

func TestKeyedMutexSerializesPerKey(t *testing.T) {
	k := NewKeyedMutex()

	var mu sync.Mutex
	counter := 0

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			unlock := k.Lock("user-1")
			defer unlock()

			mu.Lock()
			counter++
			mu.Unlock()
		}()
	}
	wg.Wait()

	assert.Equal(t, 50, counter)
}

func TestKeyedMutexIndependentKeys(t *testing.T) {
	k := NewKeyedMutex()

	unlockA := k.Lock("user-a")
	defer unlockA()

	done := make(chan struct{})
	go func() {
		unlockB := k.Lock("user-b")
		unlockB()
		close(done)
	}()

	<-done
}
