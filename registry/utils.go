package registry

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"
)

// getAllProtoInfo uses DFS to load protoFile and every file it imports from the configured directories.
// It returns the loaded paths in visit order.
func (r *Registry) getAllProtoInfo(protoFile string) ([]string, error) {
	visited := make(map[string]struct{}) // to make sure we don't end up in a loop
	result := make([]string, 0)

	var dfs func(protoPath string) error
	dfs = func(protoPath string) error {
		if _, ok := visited[protoPath]; ok {
			return nil
		}
		visited[protoPath] = struct{}{}
		result = append(result, protoPath)

		if err := r.loadSingleProtoFile(protoPath); err != nil {
			return err
		}

		for _, imp := range r.repo.ProtoFiles[protoPath].Imports {
			if strings.HasPrefix(imp.Path, "google/protobuf/") {
				Logger().Debug("skipping well-known import", zap.String("file", protoPath), zap.String("import", imp.Path))
				continue
			}
			fullImportPath, err := r.findIfProtoExists(imp.Path)
			if err != nil {
				if imp.Weak {
					Logger().Warn("weak import not found", zap.String("file", protoPath), zap.String("import", imp.Path))
					continue
				}
				return fmt.Errorf("import %s from %s: %w", imp.Path, protoPath, err)
			}
			if err := dfs(fullImportPath); err != nil {
				return err
			}
		}
		return nil
	}

	// run dfs on the input proto path
	protoPath, err := r.findIfProtoExists(protoFile)
	if err != nil {
		return nil, err
	}
	if err := dfs(protoPath); err != nil {
		return nil, err
	}
	return result, nil
}

func (r *Registry) findIfProtoExists(protoPath string) (string, error) {
	protoPath = unquote(protoPath)
	if !strings.HasSuffix(protoPath, ".proto") {
		return "", fmt.Errorf("is not a .proto file: %s", protoPath)
	}

	dirs := r.ProtoDirectories
	if len(dirs) == 0 || filepath.IsAbs(protoPath) {
		dirs = []string{""}
	}

	var lastErr error
	for _, dir := range dirs {
		fullPath := filepath.Join(dir, protoPath)
		if _, err := os.Stat(fullPath); err != nil {
			lastErr = err
			continue
		}
		return fullPath, nil
	}
	return "", fmt.Errorf("path does not exist: %s: %w", protoPath, lastErr)
}

/*
This helper function will return the entity for any referenced type ,
Be it top/file,nested or imported entities.If not found will return an error
Ref - https://github.com/protocolbuffers/protobuf/blob/b7a5772caf08d62a20fd1bca258f501fa4db022c/src/google/protobuf/descriptor.proto#L186-L191
*/
func getReferencedType(typeName, prefix string, allResolvedEntities map[string]struct{}) (string, error) {
	// check if fully qualifed prefixed by dot
	if strings.HasPrefix(typeName, ".") {
		return getFullyQualifiedType(typeName, allResolvedEntities)
	}
	// try resolving from inner entities up till the parent package
	if result, ok := splitNameAndCheck(typeName, prefix, allResolvedEntities); ok {
		return result, nil
	}
	//  check if the entity is referenced to other packages via packageName
	if _, ok := allResolvedEntities[typeName]; ok {
		return typeName, nil
	}
	return "", fmt.Errorf("unable to resolve type name: %s", typeName)
}

// splitNameAndCheck splits the prefixName and tries to append the typeName and find the entity for resolution
// it also tries the find the entities defined using relative path
func splitNameAndCheck(typeName, prefix string, allResolvedEntities map[string]struct{}) (string, bool) {
	prefixSplit := strings.Split(prefix, ".")

	for len(prefixSplit) > 0 && prefixSplit[0] != "" {
		entityName := strings.Join(prefixSplit, ".") + "." + typeName
		if _, ok := allResolvedEntities[entityName]; ok {
			return entityName, true
		}
		// Omit the last element in each iteration as we go level above to outer entity
		prefixSplit = prefixSplit[:len(prefixSplit)-1]
	}
	return "", false
}

func getFullyQualifiedType(typeName string, allResolvedEntities map[string]struct{}) (string, error) {
	typeName = strings.TrimPrefix(typeName, ".")
	if _, ok := allResolvedEntities[typeName]; ok {
		return typeName, nil
	}
	return "", fmt.Errorf("unable to resolve fully qualified type name: .%s", typeName)
}
