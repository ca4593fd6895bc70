// cmd/importar/main.go: Carga masiva de insumos en una sucursal.
// Uso: go run ./cmd/importar -sucursal centro -archivo insumos.csv
//
// Acepta .csv o .xlsx con encabezado. Las sub-recetas indican su composición
// como "nombre:cantidad; nombre:cantidad"; los nombres se resuelven contra el
// inventario unificado de la sucursal.
package main

import (
	"context"
	"errors"
	"flag"
	"os"
	"path/filepath"
	"strings"
	"time"

	"fornoro/internal/config"
	"fornoro/internal/dto"
	"fornoro/internal/infra"
	"fornoro/internal/model"
	"fornoro/internal/repository"
	"fornoro/internal/service"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
)

func main() {
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})

	sucursal := flag.String("sucursal", "", "sucursal destino (requerido)")
	archivo := flag.String("archivo", "", "ruta del .csv o .xlsx (requerido)")
	usuario := flag.String("usuario", "importador", "usuario registrado en los movimientos de stock")
	flag.Parse()
	if *sucursal == "" || *archivo == "" {
		flag.Usage()
		os.Exit(2)
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}
	var db *gorm.DB
	if cfg.DBDriver == "sqlite" {
		db, err = infra.NewSQLite(cfg.SQLitePath)
	} else {
		db, err = infra.NewDatabase(cfg.DatabaseURL)
	}
	if err != nil {
		log.Fatal().Err(err).Msg("failed to open database")
	}

	f, err := os.Open(*archivo)
	if err != nil {
		log.Fatal().Err(err).Msg("no se pudo abrir el archivo")
	}
	defer f.Close()

	var filas []fila
	if strings.EqualFold(filepath.Ext(*archivo), ".xlsx") {
		filas, err = leerXLSX(f)
	} else {
		filas, err = leerCSV(f)
	}
	if err != nil {
		log.Fatal().Err(err).Msg("archivo inválido")
	}
	filas, err = ordenarPorDependencia(filas)
	if err != nil {
		log.Fatal().Err(err).Msg("archivo inválido")
	}

	insumoRepo := repository.NewInsumoRepository(db)
	movRepo := repository.NewMovimientoStockRepository(db)
	locker := infra.NewLocalLocker(cfg.LockTimeout)
	insumos := service.NewInsumoService(insumoRepo, movRepo, locker)
	catalogo := service.NewCatalogoService(insumoRepo, locker)

	id := service.Identidad{SucursalID: *sucursal, Usuario: *usuario}
	creados, omitidos := importar(context.Background(), id, insumos, catalogo, filas)
	log.Info().Int("creados", creados).Int("omitidos", omitidos).Str("sucursal", *sucursal).Msg("importación terminada")
}

// importar creates each row in order. A row that fails is logged and skipped;
// the rest of the file still loads.
func importar(ctx context.Context, id service.Identidad, insumos service.InsumoService, catalogo service.CatalogoService, filas []fila) (creados, omitidos int) {
	for _, fl := range filas {
		req := fl.req
		if len(fl.componentes) > 0 {
			ids, err := resolverComponentes(ctx, catalogo, id.SucursalID, fl.componentes)
			if err != nil {
				log.Warn().Err(err).Int("linea", fl.linea).Str("nombre", req.Nombre).Msg("fila omitida")
				omitidos++
				continue
			}
			req.Composicion = ids
		}
		if _, err := insumos.Crear(ctx, id, req); err != nil {
			var verr *service.ValidationError
			if errors.As(err, &verr) {
				log.Warn().Str("campo", verr.Campo).Str("motivo", verr.Mensaje).Int("linea", fl.linea).Msg("fila omitida")
			} else {
				log.Error().Err(err).Int("linea", fl.linea).Msg("fila omitida")
			}
			omitidos++
			continue
		}
		creados++
	}
	return creados, omitidos
}

func resolverComponentes(ctx context.Context, catalogo service.CatalogoService, sucursal string, comp []componenteNombrado) ([]dto.ComponenteRequest, error) {
	vista, err := catalogo.InventarioUnificado(ctx, sucursal)
	if err != nil {
		return nil, err
	}
	porNombre := make(map[string]string, len(vista))
	for _, e := range vista {
		porNombre[model.NormalizarNombre(e.Nombre)] = e.ID
	}
	out := make([]dto.ComponenteRequest, 0, len(comp))
	for _, c := range comp {
		cid, ok := porNombre[model.NormalizarNombre(c.nombre)]
		if !ok {
			return nil, errors.New("componente desconocido: " + c.nombre)
		}
		out = append(out, dto.ComponenteRequest{InsumoID: cid, Cantidad: c.cantidad})
	}
	return out, nil
}
