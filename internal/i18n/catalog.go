package i18n

import "fmt"

// DefaultLanguage is used when a user has no stored preference or the
// preference has no catalog.
const DefaultLanguage = "en"

var catalog = map[string]map[string]string{
	"en": {
		"ticket_forwarded": "Your message has been forwarded to our support team.",
		"new_ticket":       "Ticket from %s (ID: %d):\n%s",
		"claim_action":     "Claim",
		"already_claimed":  "Already claimed",
		"not_authorized":   "Not authorized",
		"claimed_by":       "Claimed by %s",
		"ticket_closed":    "Ticket closed. Please rate the support.",
		"ticket_escalated": "Ticket %d has been unclaimed for too long and was escalated.",
		"reply_sent":       "Your reply has been sent.",
		"enter_rating":     "Please enter a rating (1-5) and feedback separated by a space.",
	},
	"es": {
		"ticket_forwarded": "Tu mensaje ha sido reenviado a nuestro equipo de soporte.",
		"new_ticket":       "Ticket de %s (ID: %d):\n%s",
		"claim_action":     "Reclamar",
		"already_claimed":  "Ya reclamado",
		"not_authorized":   "No autorizado",
		"claimed_by":       "Reclamado por %s",
		"ticket_closed":    "Ticket cerrado. Por favor califica el soporte.",
		"ticket_escalated": "El ticket %d lleva demasiado tiempo sin reclamar y fue escalado.",
		"reply_sent":       "Tu respuesta ha sido enviada.",
		"enter_rating":     "Ingresa una calificación (1-5) y comentarios separados por un espacio.",
	},
}

// T returns the message for key in lang, falling back to English.
func T(lang, key string) string {
	if messages, ok := catalog[lang]; ok {
		if msg, ok := messages[key]; ok {
			return msg
		}
	}
	if msg, ok := catalog[DefaultLanguage][key]; ok {
		return msg
	}
	return key
}

// F formats the message for key in lang with args.
func F(lang, key string, args ...any) string {
	return fmt.Sprintf(T(lang, key), args...)
}
