package catalog

import (
	"context"
	"fmt"

	"github.com/jhoicas/stock-ledger/internal/application/reservation"
)

var _ reservation.Catalog = (*FixedResolver)(nil)

// FixedResolver resuelve la ubicación de reserva con la bodega/ubicación por
// defecto de la configuración. El catálogo real es un servicio externo; este
// adaptador cubre despliegues de una sola bodega y los entornos de prueba.
type FixedResolver struct {
	warehouseID string
	locationID  string
}

// NewFixedResolver construye el resolutor con los valores por defecto.
func NewFixedResolver(warehouseID, locationID string) *FixedResolver {
	return &FixedResolver{warehouseID: warehouseID, locationID: locationID}
}

// ResolveLocation devuelve la bodega/ubicación por defecto para cualquier ítem.
func (r *FixedResolver) ResolveLocation(_ context.Context, _, itemID string) (string, string, error) {
	if r.warehouseID == "" || r.locationID == "" {
		return "", "", fmt.Errorf("sin ubicación por defecto configurada para el ítem %s", itemID)
	}
	return r.warehouseID, r.locationID, nil
}
