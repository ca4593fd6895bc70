// cmd/gentoken/main.go: Firma un token de desarrollo para una sucursal.
// Uso: go run ./cmd/gentoken -sucursal centro -usuario ana -rol encargado
package main

import (
	"flag"
	"fmt"
	"os"
	"time"

	"fornoro/internal/config"
	"fornoro/internal/middleware"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

func main() {
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	sucursal := flag.String("sucursal", "", "sucursal del operador (requerido)")
	usuario := flag.String("usuario", "dev", "nombre visible del operador")
	rol := flag.String("rol", middleware.RolEncargado, "admin | encargado | cocina")
	horas := flag.Int("horas", 0, "vigencia en horas (default JWT_EXPIRATION_HOURS)")
	flag.Parse()

	if *sucursal == "" {
		flag.Usage()
		os.Exit(2)
	}
	switch *rol {
	case middleware.RolAdmin, middleware.RolEncargado, middleware.RolCocina:
	default:
		log.Fatal().Str("rol", *rol).Msg("rol desconocido")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}
	if cfg.JWTSecret == "" {
		log.Fatal().Msg("JWT_SECRET no está configurado")
	}
	ttl := time.Duration(cfg.JWTExpirationHours) * time.Hour
	if *horas > 0 {
		ttl = time.Duration(*horas) * time.Hour
	}

	token, err := middleware.IssueToken(cfg.JWTSecret, *sucursal, *usuario, *rol, ttl)
	if err != nil {
		log.Fatal().Err(err).Msg("no se pudo firmar el token")
	}
	fmt.Println(token)
}
