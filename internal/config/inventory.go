package config

import (
	"bytes"
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/pelletier/go-toml/v2"

	"github.com/example/rehearsal-scheduler/internal/scheduler"
)

type inventoryFile struct {
	Equipment map[string]int `toml:"equipment"`
}

// LoadInventory reads equipment stock from a TOML file with an [equipment] table:
//
//	[equipment]
//	"ベーアン" = 3
//
// An empty path yields the default inventory.
func LoadInventory(path string) (scheduler.Inventory, error) {
	if strings.TrimSpace(path) == "" {
		return scheduler.DefaultInventory(), nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return scheduler.Inventory{}, fmt.Errorf("機材在庫ファイルを読み込めません: %w", err)
	}
	return ParseInventory(raw)
}

// ParseInventory decodes TOML inventory content.
func ParseInventory(raw []byte) (scheduler.Inventory, error) {
	var file inventoryFile
	dec := toml.NewDecoder(bytes.NewReader(raw))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&file); err != nil {
		return scheduler.Inventory{}, fmt.Errorf("機材在庫ファイルの形式が不正です: %w", err)
	}
	if len(file.Equipment) == 0 {
		return scheduler.Inventory{}, fmt.Errorf("機材在庫ファイルに [equipment] がありません")
	}

	invalid := make([]string, 0)
	stock := make(map[string]int, len(file.Equipment))
	for item, count := range file.Equipment {
		name := strings.TrimSpace(item)
		if name == "" || count <= 0 {
			invalid = append(invalid, item)
			continue
		}
		stock[name] = count
	}
	if len(invalid) > 0 {
		sort.Strings(invalid)
		return scheduler.Inventory{}, fmt.Errorf("機材在庫の値が不正です: %s", strings.Join(invalid, ", "))
	}
	return scheduler.NewInventory(stock), nil
}
