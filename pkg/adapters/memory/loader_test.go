package memory_test

import (
	"testing"

	"github.com/aretw0/arbor/pkg/adapters/memory"
	contract "github.com/aretw0/arbor/pkg/ports/tests"
)

func TestInMemoryLoader_Contract(t *testing.T) {
	data := map[string]string{
		"greeter": "title: Greeter\nnodes:\n  - field: name\n",
		"todo":    "title: Todo\n",
	}

	bytesData := make(map[string][]byte)
	for k, v := range data {
		bytesData[k] = []byte(v)
	}

	contract.DefinitionLoaderContractTest(t, memory.NewLoader(data), bytesData)
}
