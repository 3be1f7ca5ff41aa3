package app

import (
	"github.com/mbolis/sparta-forms/config"
	"github.com/mbolis/sparta-forms/schema"
	"github.com/mbolis/sparta-forms/session"
	"github.com/mbolis/sparta-forms/store"
)

type App struct {
	config.Config
	Sessions *session.Manager
	Schemas  *schema.Cache
	Store    *store.Store
}
