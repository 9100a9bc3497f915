package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/xavierca1/ligue-crm/internal/entity"
)

type stagesFile struct {
	Stages []entity.Stage `yaml:"stages"`
}

// LoadStageCatalog monta o catálogo de etapas do funil. Sem arquivo, usa o
// catálogo padrão.
func LoadStageCatalog(path string) (*entity.StageCatalog, error) {
	if path == "" {
		return entity.NewStageCatalog(nil), nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("ler arquivo de etapas: %w", err)
	}
	return ParseStages(data)
}

func ParseStages(data []byte) (*entity.StageCatalog, error) {
	var f stagesFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("arquivo de etapas inválido: %w", err)
	}
	if len(f.Stages) == 0 {
		return nil, fmt.Errorf("arquivo de etapas sem nenhuma etapa")
	}
	return entity.NewStageCatalog(f.Stages), nil
}
