package testdata

import (
	"io/ioutil"
	"path/filepath"
	"testing"
)

// LoadMixedCollection reads a feature collection of points, lines, polygons and other geometries from mixedCollection.json
func LoadMixedCollection(t *testing.T) []byte {
	return loadTestdata(t, "mixedCollection.json")
}

// LoadExampleLayerRequest reads the example layer request from exampleLayerRequest.json
func LoadExampleLayerRequest(t *testing.T) []byte {
	return loadTestdata(t, "exampleLayerRequest.json")
}

// LoadExampleTypesRequest reads an example layer request with pre-split types from exampleTypesRequest.json
func LoadExampleTypesRequest(t *testing.T) []byte {
	return loadTestdata(t, "exampleTypesRequest.json")
}

func loadTestdata(t *testing.T, name string) []byte {
	path := filepath.Join("../testdata", name) // relative path
	bytes, err := ioutil.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	return bytes
}
