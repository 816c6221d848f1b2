package model

// SourceRow is one raw row as produced by the source system. Field names and
// casing vary between the ERP payload and the database views, so rows stay
// untyped until the mapper normalizes them.
type SourceRow = map[string]any

// InventoryRecord is the normalized destination shape for inventario_fisico.
// Talla and Color are plain strings ("" when the source value is null) because
// they belong to the conflict key and a null there breaks upsert dedup.
type InventoryRecord struct {
	Mes                string   `json:"mes"`
	CodigoBodega       string   `json:"codigo_bodega"`
	NombreBodega       *string  `json:"nombre_bodega"`
	CodigoTipoProducto *string  `json:"codigo_tipo_producto"`
	NombreTipoProducto *string  `json:"nombre_tipo_producto"`
	Referencia         string   `json:"referencia"`
	Nombre             *string  `json:"nombre"`
	Talla              string   `json:"talla"`
	Color              string   `json:"color"`
	CantidadFisica     *float64 `json:"cantidad_fisica"`
	CostoUnitarioLocal *float64 `json:"costo_unitario_local"`
	CostoUnitarioNiif  *float64 `json:"costo_unitario_niif"`
	CostoUnitarioTotal *float64 `json:"costo_unitario_total"`
	ActualizadoEn      string   `json:"actualizado_en"`
}

// ProductRecord is the normalized destination shape for productos.
type ProductRecord struct {
	Referencia    string  `json:"referencia"`
	Nombre        *string `json:"nombre"`
	CodigoBarras  *string `json:"codigo_barras"`
	Temporada     *string `json:"temporada"`
	ActualizadoEn string  `json:"actualizado_en"`
}

// PriceRecord is the normalized destination shape for lista_precios.
// Rows without a price are dropped before dedup, so Precio is never null.
type PriceRecord struct {
	Referencia        string  `json:"referencia"`
	CodigoListaPrecio string  `json:"codigo_lista_precio"`
	Precio            float64 `json:"precio"`
	ActualizadoEn     string  `json:"actualizado_en"`
}

// Destination tables, in upsert order.
const (
	TableInventory = "inventario_fisico"
	TableProducts  = "productos"
	TablePrices    = "lista_precios"
)

// Conflict keys declared to the destination store per table.
var (
	InventoryConflictKey = []string{"mes", "codigo_bodega", "referencia", "talla", "color"}
	ProductConflictKey   = []string{"referencia"}
	PriceConflictKey     = []string{"referencia", "codigo_lista_precio"}
)

// AuthMode tells the fetch step how to present the negotiated session.
type AuthMode string

const (
	AuthToken  AuthMode = "token"
	AuthCookie AuthMode = "cookie"
	// AuthBasic means the data endpoint takes Basic credentials directly and
	// no separate login call ever succeeded or was needed.
	AuthBasic AuthMode = "basic"
)

// AuthResult is the outcome of login negotiation. Token is set only when
// Mode is AuthToken; in cookie mode the session jar carries the credential.
type AuthResult struct {
	Mode  AuthMode
	Token string
}
