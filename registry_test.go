package bastion_test

import (
	"fmt"
	"slices"
	"sync"
	"testing"

	"github.com/byte4ever/bastion"
)

func TestNewRegistryIsEmpty(t *testing.T) {
	reg := bastion.NewRegistry()

	if names := reg.Names(); len(names) != 0 {
		t.Fatalf("Names() = %v, want empty", names)
	}
	if _, ok := reg.Lookup("any"); ok {
		t.Fatal("Lookup(any) found a config in an empty registry")
	}
}

func TestRegistryStoreReplaces(t *testing.T) {
	reg := bastion.NewRegistry()
	one, two := 1, 2

	reg.Store("api", bastion.PipelineConfig{Policies: []bastion.PolicyConfig{{Type: "retry", MaxAttempts: &one}}})
	reg.Store("api", bastion.PipelineConfig{Policies: []bastion.PolicyConfig{{Type: "retry", MaxAttempts: &two}}})

	pc, ok := reg.Lookup("api")
	if !ok || *pc.Policies[0].MaxAttempts != 2 {
		t.Fatalf("Lookup(api) = %+v, %v, want the latest config", pc, ok)
	}
}

func TestDefaultRegistryIsSingleton(t *testing.T) {
	if bastion.DefaultRegistry() != bastion.DefaultRegistry() {
		t.Fatal("DefaultRegistry() returned different instances")
	}
}

func TestRegistryConcurrentStoreAndRead(t *testing.T) {
	reg := bastion.NewRegistry()

	var wg sync.WaitGroup
	for i := range 20 {
		wg.Add(2)
		go func() {
			defer wg.Done()
			reg.Store(fmt.Sprintf("p%02d", i), bastion.PipelineConfig{})
		}()
		go func() {
			defer wg.Done()
			_ = reg.Names()
			_, _ = reg.Lookup("p00")
		}()
	}
	wg.Wait()

	names := reg.Names()
	if len(names) != 20 || !slices.IsSorted(names) {
		t.Fatalf("Names() = %v, want 20 sorted names", names)
	}
}
