package modelcue

import (
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"cuelang.org/go/cue/load"

	"github.com/roach88/qwiq/internal/model"
)

// Models is a set of compiled models, in declaration order.
type Models struct {
	names  []string
	byName map[string]*model.Descriptor[model.Record]
}

// Names returns the model names in declaration order.
func (m *Models) Names() []string { return slices.Clone(m.names) }

// Lookup finds a model by name, ignoring case.
func (m *Models) Lookup(name string) (*model.Descriptor[model.Record], bool) {
	d, ok := m.byName[strings.ToLower(name)]
	return d, ok
}

// Len returns the number of models.
func (m *Models) Len() int { return len(m.names) }

// LoadDir loads every model declared by the CUE package in dir.
func LoadDir(dir string) (*Models, error) {
	info, err := os.Stat(dir)
	if err != nil {
		return nil, fmt.Errorf("models directory: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("not a directory: %s", dir)
	}

	files, err := FindCUEFiles(dir)
	if err != nil {
		return nil, fmt.Errorf("scan %s: %w", dir, err)
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("no CUE files found in %s", dir)
	}

	instances := load.Instances([]string{"."}, &load.Config{Dir: dir})
	if len(instances) == 0 {
		return nil, fmt.Errorf("no CUE instances loaded from %s", dir)
	}
	if err := instances[0].Err; err != nil {
		return nil, fmt.Errorf("load CUE files: %w", err)
	}

	value := cuecontext.New().BuildInstance(instances[0])
	return compile(value)
}

// Compile compiles models from CUE source text.
func Compile(src string) (*Models, error) {
	return compile(cuecontext.New().CompileString(src))
}

func compile(value cue.Value) (*Models, error) {
	if err := value.Err(); err != nil {
		return nil, formatCUEError(err)
	}

	models := &Models{byName: make(map[string]*model.Descriptor[model.Record])}
	modelsVal := value.LookupPath(cue.ParsePath("model"))
	if !modelsVal.Exists() {
		return nil, &CompileError{Field: "model", Message: "no models declared"}
	}
	iter, err := modelsVal.Fields()
	if err != nil {
		return nil, formatCUEError(err)
	}
	for iter.Next() {
		schema, err := CompileModel(iter.Value())
		if err != nil {
			return nil, fmt.Errorf("model %s: %w", iter.Label(), err)
		}
		key := strings.ToLower(schema.Name)
		if _, dup := models.byName[key]; dup {
			return nil, &CompileError{Field: "model." + schema.Name, Message: "declared twice", Pos: iter.Value().Pos()}
		}
		models.names = append(models.names, schema.Name)
		models.byName[key] = model.DefineRecord(schema)
	}
	return models, nil
}

// FindCUEFiles walks dir and returns all .cue file paths.
func FindCUEFiles(dir string) ([]string, error) {
	var files []string
	err := filepath.Walk(dir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if !info.IsDir() && filepath.Ext(path) == ".cue" {
			files = append(files, path)
		}
		return nil
	})
	return files, err
}
