package model

import "strings"

type Provider string

const (
	ProviderDeepInfra  = Provider("deepinfra")
	ProviderVenice     = Provider("venice")
	ProviderOpenRouter = Provider("openrouter")
)

const (
	VenicePrefix     = "venice/"
	OpenRouterPrefix = "openrouter/"
)

// Model is an invokable LLM as listed by the catalog.
type Model struct {
	ID       string
	Name     string
	Provider Provider
}

func NewDeepInfraModel(id string) Model {
	return Model{ID: id, Name: id, Provider: ProviderDeepInfra}
}

func NewVeniceModel(id string) Model {
	return Model{ID: id, Name: strings.ReplaceAll(id, VenicePrefix, ""), Provider: ProviderVenice}
}

func NewOpenRouterModel(id string) Model {
	return Model{ID: id, Name: strings.ReplaceAll(id, OpenRouterPrefix, ""), Provider: ProviderOpenRouter}
}
