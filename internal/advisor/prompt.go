package advisor

import (
	"fmt"
	"strings"

	"github.com/angelmondragon/asarum-backend/internal/catalog"
	"github.com/angelmondragon/asarum-backend/pkg/enums"
)

const (
	// Greeting is the advisor's opening message shown before the first turn.
	Greeting = "¡Hola! Soy tu asistente de Asarum Florería. ¿Buscas algo especial para hoy? Recuerda que para este 14 de Febrero no contamos con horario fijo de entrega por la alta demanda."

	// FallbackEmpty is returned when the model answers with no text.
	FallbackEmpty = "Lo siento, tuve un problema al procesar tu mensaje. Por favor intenta de nuevo."

	// FallbackUnavailable is returned when the model call fails.
	FallbackUnavailable = "Lo siento, no puedo responder en este momento. Por favor contactanos por WhatsApp."
)

// BuildSystemPrompt renders the sales assistant instructions for the current
// catalog and season.
func BuildSystemPrompt(products []catalog.ProductDTO, season enums.Season) string {
	var catalogLines strings.Builder
	for i, p := range products {
		if i > 0 {
			catalogLines.WriteString("\n")
		}
		fmt.Fprintf(&catalogLines, "- %s: %s (Desde $%s)", p.Name, p.Description, p.BasePrice.String())
	}

	var b strings.Builder
	b.WriteString("Eres un asistente de ventas experto para \"Asarum Florería y Regalos\".\n")
	b.WriteString("Información de la empresa:\n")
	b.WriteString("- Sucursal Hermosillo: Desde 2015.\n")
	b.WriteString("- Sucursal San Luis Río Colorado: Desde 1994.\n")
	fmt.Fprintf(&b, "- Temporada actual: %s.\n", season)
	b.WriteString("- IMPORTANTE: Para el 14 de Febrero (San Valentín), NO se garantizan horarios de entrega específicos debido a la alta demanda. ")
	b.WriteString("Debes mencionar esto si te preguntan sobre entregas o si el usuario está interesado en comprar para esa fecha.\n")
	b.WriteString("- Tu objetivo es ayudar al usuario a elegir un arreglo y cerrar la venta.\n")
	b.WriteString("- Sé amable, profesional y romántico/detallista.\n")
	b.WriteString("- Catálogo actual disponible:\n")
	b.WriteString(catalogLines.String())
	b.WriteString("\n\nSi el usuario está listo para comprar, indícale que puede agregar el producto al carrito o ir a la sección de catálogo.")
	return b.String()
}
