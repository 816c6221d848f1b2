package mapper

import (
	"time"

	"retail-sync/inventory-sync/internal/model"
)

// Pure row-to-record transforms. No I/O; the clock is injected so mapping is
// deterministic under test. Each mapper reports ok=false when the row lacks
// the record's primary natural-key field, and the caller skips the row.

// Inventory maps one source row to an inventario_fisico record.
// fallbackMes fills the month when the row itself carries none (the ERP
// payload omits it; the database views always include it).
func Inventory(row model.SourceRow, fallbackMes string, now time.Time) (model.InventoryRecord, bool) {
	ref := pickStr(row, "Referencia", "referencia", "codigoAlternoProducto")
	if ref == "" {
		return model.InventoryRecord{}, false
	}
	mes := pickStr(row, "Mes", "mes")
	if mes == "" {
		mes = fallbackMes
	}
	return model.InventoryRecord{
		Mes:                mes,
		CodigoBodega:       pickStr(row, "Codigo_bodega", "codigoBodega", "bodega"),
		NombreBodega:       pickStrPtr(row, "Nombre_bodega", "nombreBodega"),
		CodigoTipoProducto: pickStrPtr(row, "Codigo_tipo_producto", "codigoTipoProducto"),
		NombreTipoProducto: pickStrPtr(row, "Nombre_tipo_producto", "nombreTipoProducto"),
		Referencia:         ref,
		Nombre:             pickStrPtr(row, "Nombre", "nombre", "nombreProducto"),
		Talla:              pickStr(row, "Talla", "talla"),
		Color:              pickStr(row, "Color", "color"),
		CantidadFisica:     pickFloat(row, "Cantidad_fisica", "cantidadFisica"),
		CostoUnitarioLocal: pickFloat(row, "Costo_unitario_local", "costoUnitarioLocal"),
		CostoUnitarioNiif:  pickFloat(row, "Costo_unitario_niif", "costoUnitarioNiif"),
		CostoUnitarioTotal: pickFloat(row, "Costo_unitario_total", "costoUnitarioTotal"),
		ActualizadoEn:      isoTime(now),
	}, true
}

// Product maps one source row to a productos record.
func Product(row model.SourceRow, now time.Time) (model.ProductRecord, bool) {
	ref := pickStr(row, "codigoAlternoProducto", "Referencia", "referencia")
	if ref == "" {
		return model.ProductRecord{}, false
	}
	return model.ProductRecord{
		Referencia:    ref,
		Nombre:        pickStrPtr(row, "nombreProducto", "Nombre", "nombre"),
		CodigoBarras:  pickStrPtr(row, "codigoBarras", "Codigo_barras", "barcode"),
		Temporada:     pickStrPtr(row, "temporada", "Temporada", "season"),
		ActualizadoEn: isoTime(now),
	}, true
}

// Price maps one source row to a lista_precios record. Rows without a price
// are dropped here, before dedup, so a null never reaches the destination.
func Price(row model.SourceRow, now time.Time) (model.PriceRecord, bool) {
	ref := pickStr(row, "codigoAlternoProducto", "Referencia", "referencia")
	if ref == "" {
		return model.PriceRecord{}, false
	}
	precio := pickFloat(row, "precio", "Precio", "valor")
	if precio == nil {
		return model.PriceRecord{}, false
	}
	return model.PriceRecord{
		Referencia:        ref,
		CodigoListaPrecio: pickStr(row, "codigoListaPrecio", "listaPrecio", "Lista_precio"),
		Precio:            *precio,
		ActualizadoEn:     isoTime(now),
	}, true
}
