package registry

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/anirudhraja/protostream/schema"
)

// Registry allows us to store the schema of the protobuf messages. We look this up when we need to parse or marshal a message.
type Registry struct {
	// ProtoDirectories are searched, in order, for files passed to LoadFile
	// and for the imports those files declare.
	ProtoDirectories []string

	mu       sync.RWMutex
	repo     *schema.ProtoRepo
	messages map[string]*schema.Message // fully qualified name -> message
	enums    map[string]*schema.Enum    // fully qualified name -> enum
}

// NewRegistry creates an empty registry resolving imports against protoDirs.
func NewRegistry(protoDirs ...string) *Registry {
	return &Registry{
		ProtoDirectories: protoDirs,
		repo:             &schema.ProtoRepo{ProtoFiles: make(map[string]*schema.ProtoFile)},
		messages:         make(map[string]*schema.Message),
		enums:            make(map[string]*schema.Enum),
	}
}

// LoadSchema Given a path it will recursively scan all *proto files inside it and add them to the registry.
// Imports are not followed; a directory is expected to hold everything it references.
func (r *Registry) LoadSchema(protoPath string) error {
	info, err := os.Stat(protoPath)
	if err != nil {
		return fmt.Errorf("path does not exist: %w", err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if !info.IsDir() {
		if !strings.HasSuffix(protoPath, ".proto") {
			return fmt.Errorf("file %s is not a .proto file", protoPath)
		}
		if err := r.loadSingleProtoFile(protoPath); err != nil {
			return fmt.Errorf("failed to load proto file: %w", err)
		}
	} else {
		err = filepath.WalkDir(protoPath, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}

			// Skip directories and non-proto files
			if d.IsDir() || !strings.HasSuffix(path, ".proto") {
				return nil
			}

			if err := r.loadSingleProtoFile(path); err != nil {
				return fmt.Errorf("failed to load proto file %s: %w", path, err)
			}
			return nil
		})
		if err != nil {
			return fmt.Errorf("failed to walk directory: %w", err)
		}
	}

	if err := r.buildSymbolTable(); err != nil {
		return fmt.Errorf("failed to build symbol table: %w", err)
	}
	return nil
}

// LoadFile loads protoFile, located through ProtoDirectories, together with
// every file it transitively imports.
func (r *Registry) LoadFile(protoFile string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	files, err := r.getAllProtoInfo(protoFile)
	if err != nil {
		return fmt.Errorf("failed to load %s: %w", protoFile, err)
	}
	Logger().Debug("resolved proto imports", zap.String("file", protoFile), zap.Strings("files", files))

	if err := r.buildSymbolTable(); err != nil {
		return fmt.Errorf("failed to build symbol table: %w", err)
	}
	return nil
}

// loadSingleProtoFile loads and parses a single .proto file
func (r *Registry) loadSingleProtoFile(filePath string) error {
	protoFile, err := parseProtoFile(filePath)
	if err != nil {
		return err
	}

	r.repo.ProtoFiles[filePath] = protoFile
	Logger().Debug("loaded proto file",
		zap.String("path", filePath),
		zap.String("package", protoFile.Package),
		zap.String("syntax", protoFile.Syntax),
		zap.Int("messages", len(protoFile.Messages)),
		zap.Int("enums", len(protoFile.Enums)))
	return nil
}

// buildSymbolTable rebuilds the name tables from every loaded file and
// resolves named field types to fully qualified message or enum names.
func (r *Registry) buildSymbolTable() error {
	messages := make(map[string]*schema.Message)
	enums := make(map[string]*schema.Enum)

	// Pass 1: Register all message and enum names
	for path, protoFile := range r.repo.ProtoFiles {
		if err := registerNames(protoFile, messages, enums); err != nil {
			return fmt.Errorf("%s: %w", path, err)
		}
	}

	fromFiles := make([]string, 0, len(messages))
	for name := range messages {
		fromFiles = append(fromFiles, name)
	}

	// Keep programmatically added definitions that no file redefines.
	for name, msg := range r.messages {
		if _, ok := messages[name]; !ok {
			messages[name] = msg
		}
	}
	for name, enum := range r.enums {
		if _, ok := enums[name]; !ok {
			enums[name] = enum
		}
	}

	entities := make(map[string]struct{}, len(messages)+len(enums))
	for name := range messages {
		entities[name] = struct{}{}
	}
	for name := range enums {
		entities[name] = struct{}{}
	}

	// Pass 2: Resolve field types of every message read from a file
	for _, name := range fromFiles {
		if err := resolveFields(messages[name], name, messages, enums, entities); err != nil {
			return err
		}
	}

	r.messages = messages
	r.enums = enums
	Logger().Info("schema registry built",
		zap.Int("files", len(r.repo.ProtoFiles)),
		zap.Int("messages", len(messages)),
		zap.Int("enums", len(enums)))
	return nil
}

// registerNames registers all message and enum names
func registerNames(protoFile *schema.ProtoFile, messages map[string]*schema.Message, enums map[string]*schema.Enum) error {
	pkg := protoFile.Package
	for _, msg := range protoFile.Messages {
		if err := registerMessage(getFullName(pkg, msg.Name), msg, messages, enums); err != nil {
			return err
		}
	}
	for _, enum := range protoFile.Enums {
		if err := registerEnum(getFullName(pkg, enum.Name), enum, enums); err != nil {
			return err
		}
	}
	return nil
}

// registerMessage registers msg and its nested message and enum names
func registerMessage(fullName string, msg *schema.Message, messages map[string]*schema.Message, enums map[string]*schema.Enum) error {
	if existing, ok := messages[fullName]; ok && existing != msg {
		return fmt.Errorf("duplicate message definition: %s", fullName)
	}
	msg.FullName = fullName
	messages[fullName] = msg

	for _, nested := range msg.NestedTypes {
		if err := registerMessage(fullName+"."+nested.Name, nested, messages, enums); err != nil {
			return err
		}
	}
	for _, nested := range msg.NestedEnums {
		if err := registerEnum(fullName+"."+nested.Name, nested, enums); err != nil {
			return err
		}
	}
	return nil
}

func registerEnum(fullName string, enum *schema.Enum, enums map[string]*schema.Enum) error {
	if existing, ok := enums[fullName]; ok && existing != enum {
		return fmt.Errorf("duplicate enum definition: %s", fullName)
	}
	enum.FullName = fullName
	enums[fullName] = enum
	return nil
}

// resolveFields rewrites every named type referenced by msg to the fully
// qualified name it resolves to from scope.
func resolveFields(msg *schema.Message, scope string, messages map[string]*schema.Message, enums map[string]*schema.Enum, entities map[string]struct{}) error {
	for _, field := range msg.AllFields() {
		target := &field.Type
		if target.Kind == schema.KindMap {
			target = target.MapValue
		}
		if err := resolveType(target, scope, messages, enums, entities); err != nil {
			return fmt.Errorf("message %s field %s: %w", scope, field.Name, err)
		}
	}
	return nil
}

func resolveType(t *schema.FieldType, scope string, messages map[string]*schema.Message, enums map[string]*schema.Enum, entities map[string]struct{}) error {
	var name string
	switch t.Kind {
	case schema.KindMessage:
		name = t.MessageType
	case schema.KindEnum:
		name = t.EnumType
	default:
		return nil
	}

	resolved, err := getReferencedType(name, scope, entities)
	if err != nil {
		return fmt.Errorf("unknown type: %w", err)
	}

	if _, ok := messages[resolved]; ok {
		t.Kind = schema.KindMessage
		t.MessageType = resolved
		t.EnumType = ""
		return nil
	}
	if _, ok := enums[resolved]; ok {
		t.Kind = schema.KindEnum
		t.EnumType = resolved
		t.MessageType = ""
		return nil
	}
	return fmt.Errorf("unknown type: %s", name)
}

func getFullName(pkg, name string) string {
	if pkg == "" {
		return name
	}
	return pkg + "." + name
}

// AddMessage registers a message built in code under its FullName (or Name
// when FullName is empty), together with its nested types. Field types are
// looked up by name at use time and may be short names.
func (r *Registry) AddMessage(msg *schema.Message) error {
	if msg == nil || msg.Name == "" {
		return fmt.Errorf("message must have a name")
	}
	fullName := msg.FullName
	if fullName == "" {
		fullName = msg.Name
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	return registerMessage(fullName, msg, r.messages, r.enums)
}

// AddEnum registers an enum built in code under its FullName (or Name).
func (r *Registry) AddEnum(enum *schema.Enum) error {
	if enum == nil || enum.Name == "" {
		return fmt.Errorf("enum must have a name")
	}
	fullName := enum.FullName
	if fullName == "" {
		fullName = enum.Name
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	return registerEnum(fullName, enum, r.enums)
}

// GetMessage retrieves a message definition by fully qualified name, or by a
// name suffix when that suffix identifies exactly one message.
func (r *Registry) GetMessage(name string) (*schema.Message, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	msg, err := lookup(r.messages, name)
	if err != nil {
		return nil, fmt.Errorf("message %w", err)
	}
	return msg, nil
}

// GetEnum retrieves an enum definition the same way GetMessage does.
func (r *Registry) GetEnum(name string) (*schema.Enum, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	enum, err := lookup(r.enums, name)
	if err != nil {
		return nil, fmt.Errorf("enum %w", err)
	}
	return enum, nil
}

func lookup[T any](defs map[string]T, name string) (T, error) {
	var zero T
	name = strings.TrimPrefix(name, ".")
	if def, ok := defs[name]; ok {
		return def, nil
	}

	// Try without package prefix
	var matches []string
	for fullName := range defs {
		if strings.HasSuffix(fullName, "."+name) {
			matches = append(matches, fullName)
		}
	}
	switch len(matches) {
	case 0:
		return zero, fmt.Errorf("not found: %s", name)
	case 1:
		return defs[matches[0]], nil
	default:
		sort.Strings(matches)
		return zero, fmt.Errorf("name %s is ambiguous: %s", name, strings.Join(matches, ", "))
	}
}

// ListMessages returns all registered message names, sorted
func (r *Registry) ListMessages() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return sortedKeys(r.messages)
}

// ListEnums returns all registered enum names, sorted
func (r *Registry) ListEnums() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return sortedKeys(r.enums)
}

// Files returns the loaded files keyed by path.
func (r *Registry) Files() map[string]*schema.ProtoFile {
	r.mu.RLock()
	defer r.mu.RUnlock()

	files := make(map[string]*schema.ProtoFile, len(r.repo.ProtoFiles))
	for path, f := range r.repo.ProtoFiles {
		files[path] = f
	}
	return files
}

func sortedKeys[T any](m map[string]T) []string {
	names := make([]string, 0, len(m))
	for name := range m {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
