package app

import (
	"database/sql"

	"github.com/cadasta/questionnaires/config"
	"github.com/cadasta/questionnaires/xlsform"
	"github.com/go-chi/oauth"
)

type App struct {
	*sql.DB
	*oauth.BearerServer
	config.Config
	FormCfg *xlsform.Config
}
