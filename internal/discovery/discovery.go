package discovery

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/Compy/mpf-mc/internal/assets"
	"github.com/Compy/mpf-mc/internal/config"
	"github.com/Compy/mpf-mc/internal/logging"
)

// defaultLoadKey is applied to disk-discovered assets with no
// configured load behavior.
const defaultLoadKey = assets.KeyPreload

// modeLoadPlaceholder in a mode's config resolves to "<mode>_start".
const modeLoadPlaceholder = "mode_start"

// Service scans the machine and mode directory trees, merges YAML
// asset configuration over the discovered files, and registers the
// resulting assets and groups with the manager.
type Service struct {
	cfg    *config.Config
	mgr    *assets.Manager
	logger *slog.Logger
}

func New(cfg *config.Config, mgr *assets.Manager, logger *slog.Logger) *Service {
	return &Service{
		cfg:    cfg,
		mgr:    mgr,
		logger: logging.NewComponentLogger(logger, "discovery"),
	}
}

// Run performs the full discovery pass: the machine tree first, then
// every mode tree in name order. It must be called after all asset
// classes are registered and before any load key is triggered.
func (s *Service) Run() error {
	machineRaw, err := loadYAML(s.cfg.MachineConfigPath())
	if err != nil {
		return err
	}
	if err := s.processTree(s.cfg.Paths.MachineDir, machineRaw, ""); err != nil {
		return err
	}

	modes, err := s.listModes()
	if err != nil {
		return err
	}
	for _, mode := range modes {
		modeDir := filepath.Join(s.cfg.ModesDir(), mode)
		modeRaw, err := loadYAML(filepath.Join(modeDir, "config.yaml"))
		if err != nil {
			return err
		}
		if err := s.processTree(modeDir, modeRaw, mode); err != nil {
			return err
		}
	}
	return nil
}

func (s *Service) listModes() ([]string, error) {
	entries, err := os.ReadDir(s.cfg.ModesDir())
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("read modes directory: %w", err)
	}
	var modes []string
	for _, entry := range entries {
		if entry.IsDir() && !strings.HasPrefix(entry.Name(), ".") {
			modes = append(modes, entry.Name())
		}
	}
	sort.Strings(modes)
	return modes, nil
}

// processTree registers all assets and groups of one directory tree.
// Classes run in descending class priority so kinds that others refer
// to come first.
func (s *Service) processTree(root string, raw map[string]any, mode string) error {
	for _, class := range s.mgr.Classes() {
		folder := filepath.Join(root, class.PathString)
		defaults := sectionDefaults(raw, class.Attribute)

		entries, err := s.collectDiskEntries(class, folder, defaults, mode)
		if err != nil {
			return err
		}
		if err := s.overlayConfigEntries(class, folder, raw, entries, mode); err != nil {
			return err
		}

		names := make([]string, 0, len(entries))
		for name := range entries {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			entry := entries[name]
			if _, err := s.mgr.CreateAsset(class.Attribute, name, entry.file, entry.cfg); err != nil {
				return err
			}
		}
		if len(names) > 0 {
			s.logger.Debug("assets registered",
				"kind", class.Attribute, "count", len(names), "mode", mode)
		}
	}

	return s.createGroups(raw, mode)
}

type pendingAsset struct {
	file string
	cfg  assets.Config
}

// collectDiskEntries walks the class folder. Files directly in the
// folder take the "default" settings bucket; files in a subfolder take
// the bucket named after the first path element, falling back to
// "default".
func (s *Service) collectDiskEntries(class *assets.Class, folder string, defaults map[string]assets.Config, mode string) (map[string]pendingAsset, error) {
	entries := make(map[string]pendingAsset)
	err := filepath.WalkDir(folder, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return nil
			}
			return err
		}
		if d.IsDir() || !class.AcceptsFile(d.Name()) {
			return nil
		}

		rel, err := filepath.Rel(folder, path)
		if err != nil {
			return err
		}
		bucket := "default"
		if dir, _ := filepath.Split(rel); dir != "" {
			bucket = strings.Split(filepath.ToSlash(dir), "/")[0]
		}
		settings, ok := defaults[bucket]
		if !ok {
			settings = defaults["default"]
		}

		cfg := settings.Clone()
		if _, ok := cfg["load"]; !ok {
			cfg["load"] = defaultLoadKey
		}
		translateModeLoad(cfg, mode)

		name := assetName(d.Name())
		if prior, dup := entries[name]; dup {
			s.logger.Warn("duplicate asset file name, keeping first",
				"kind", class.Attribute, "name", name, "kept", prior.file, "ignored", path)
			return nil
		}
		entries[name] = pendingAsset{file: path, cfg: cfg}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("scan %s folder: %w", class.Attribute, err)
	}
	return entries, nil
}

// overlayConfigEntries merges explicit per-asset config sections over
// the disk-discovered entries. An explicit entry may rename the
// backing file; an entry with no discovered or resolvable file is a
// lookup error.
func (s *Service) overlayConfigEntries(class *assets.Class, folder string, raw map[string]any, entries map[string]pendingAsset, mode string) error {
	section := subSection(raw, class.ConfigSection)
	names := make([]string, 0, len(section))
	for name := range section {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		entryCfg := section[name]
		translateModeLoad(entryCfg, mode)

		existing, ok := entries[name]
		if ok {
			merged := existing.cfg.Clone()
			for k, v := range entryCfg {
				merged[k] = v
			}
			file := existing.file
			if fileName := entryCfg.String("file", ""); fileName != "" {
				located, err := LocateFile(fileName, folder)
				if err != nil {
					return fmt.Errorf("%s %q: %w", class.Attribute, name, err)
				}
				file = located
			}
			entries[name] = pendingAsset{file: file, cfg: merged}
			continue
		}

		fileName := entryCfg.String("file", "")
		if fileName == "" {
			fileName = name
		}
		located, err := LocateFile(fileName, folder)
		if err != nil {
			return fmt.Errorf("%s %q: %w", class.Attribute, name, err)
		}
		cfg := entryCfg.Clone()
		if _, ok := cfg["load"]; !ok {
			cfg["load"] = "on_demand"
		}
		entries[name] = pendingAsset{file: located, cfg: cfg}
	}
	return nil
}

func (s *Service) createGroups(raw map[string]any, mode string) error {
	for _, class := range s.mgr.Classes() {
		if class.GroupSection == "" {
			continue
		}
		section := subSection(raw, class.GroupSection)
		names := make([]string, 0, len(section))
		for name := range section {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			cfg := section[name]
			translateModeLoad(cfg, mode)
			if _, err := s.mgr.CreateGroup(class.Attribute, name, cfg); err != nil {
				return err
			}
		}
	}
	return nil
}

// translateModeLoad rewrites the mode_start placeholder into the
// mode's own start key. Outside a mode the placeholder is left alone.
func translateModeLoad(cfg assets.Config, mode string) {
	if mode == "" {
		return
	}
	if cfg.String("load", "") == modeLoadPlaceholder {
		cfg["load"] = mode + "_start"
	}
}

// assetName is the registry name of a discovered file: the base name
// without its extension.
func assetName(fileName string) string {
	return strings.TrimSuffix(fileName, filepath.Ext(fileName))
}

// loadYAML reads a YAML mapping, returning an empty map for a missing
// file.
func loadYAML(path string) (map[string]any, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return map[string]any{}, nil
		}
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}
	var raw map[string]any
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	if raw == nil {
		raw = map[string]any{}
	}
	return raw, nil
}

// sectionDefaults extracts the per-bucket default settings under
// assets.<attribute>. A "default" bucket always exists.
func sectionDefaults(raw map[string]any, attribute string) map[string]assets.Config {
	out := map[string]assets.Config{}
	if assetsSection, ok := raw["assets"].(map[string]any); ok {
		for bucket, cfg := range toConfigMap(assetsSection[attribute]) {
			out[bucket] = cfg
		}
	}
	if _, ok := out["default"]; !ok {
		out["default"] = assets.Config{}
	}
	return out
}

// subSection returns a named top-level section as per-entry configs.
func subSection(raw map[string]any, key string) map[string]assets.Config {
	return toConfigMap(raw[key])
}

func toConfigMap(value any) map[string]assets.Config {
	out := map[string]assets.Config{}
	section, ok := value.(map[string]any)
	if !ok {
		return out
	}
	for name, entry := range section {
		switch typed := entry.(type) {
		case map[string]any:
			out[name] = assets.Config(typed)
		case nil:
			out[name] = assets.Config{}
		default:
			// Scalar entries (e.g. a bare file name) become a file key.
			out[name] = assets.Config{"file": fmt.Sprint(typed)}
		}
	}
	return out
}
