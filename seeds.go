package main

import (
	"encoding/json"
	"fmt"
	"os"

	"charterbench/internal/mock"
)

// defaultSeeds is the built-in starter corpus: a handful of realistic,
// charter-compliant contributions spread over the category set. A seeds
// file replaces these entirely.
func defaultSeeds() []mock.Item {
	valid := true
	specs := []struct {
		primary, secondary, category string
	}{
		{
			"Le parking du port est souvent plein en été, ce qui oblige les visiteurs à se garer loin ou de manière sauvage. Cela crée des problèmes de circulation et nuit à l'image de la commune.",
			"Créer un parking relais à l'entrée de la ville avec une navette gratuite vers le port. Mettre en place un système de stationnement payant pour les non-résidents afin de favoriser la rotation.",
			"economie",
		},
		{
			"La plage du Trez est régulièrement sale en fin de journée pendant la saison touristique. Les poubelles débordent dès le milieu de l'après-midi.",
			"Installer des poubelles supplémentaires avec un ramassage quotidien en haute saison, et organiser des opérations de nettoyage citoyennes le dimanche matin.",
			"ecologie",
		},
		{
			"Les jeunes de la commune manquent de lieux de rencontre en dehors de la période estivale. La salle polyvalente est rarement ouverte en semaine.",
			"Ouvrir la salle polyvalente deux soirs par semaine avec un animateur, en impliquant les associations locales dans la programmation.",
			"jeunesse",
		},
		{
			"Plusieurs logements du centre-bourg restent vacants toute l'année alors que les saisonniers peinent à se loger l'été.",
			"Recenser les logements vacants et proposer aux propriétaires un accompagnement pour la location saisonnière encadrée.",
			"logement",
		},
	}

	g := mock.NewGenerator()
	items := make([]mock.Item, 0, len(specs))
	for _, s := range specs {
		items = append(items, g.AddSeed(s.primary, s.secondary, s.category, &valid, mock.SourceSeed))
	}
	return items
}

// seedFile is the authoring format for a custom seeds file.
type seedFile struct {
	Seeds []struct {
		PrimaryText   string `json:"primary_text"`
		SecondaryText string `json:"secondary_text"`
		Category      string `json:"category"`
		ExpectedValid *bool  `json:"expected_valid"`
	} `json:"seeds"`
}

// loadSeeds reads authored seeds from path, or returns the built-in corpus
// when path is empty.
func loadSeeds(path string) ([]mock.Item, error) {
	if path == "" {
		return defaultSeeds(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading seeds file: %w", err)
	}
	var f seedFile
	if err := json.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parsing seeds file %s: %w", path, err)
	}
	if len(f.Seeds) == 0 {
		return nil, fmt.Errorf("seeds file %s contains no seeds", path)
	}

	g := mock.NewGenerator()
	items := make([]mock.Item, 0, len(f.Seeds))
	for _, s := range f.Seeds {
		items = append(items, g.AddSeed(s.PrimaryText, s.SecondaryText, s.Category, s.ExpectedValid, mock.SourceSeed))
	}
	return items, nil
}
