package errors

// Customer-facing messages. The storefront addresses a German audience first.
const (
	MsgRateLimited         = "Zu viele Anfragen. Bitte versuchen Sie es in 5 Minuten erneut."
	MsgDownloadRateLimited = "Zu viele Download-Anfragen. Bitte versuchen Sie es in 5 Minuten erneut."
	MsgInvalidRequest      = "Ungültige Anfragedaten"
	MsgInvalidKeyFormat    = "Ungültiges Lizenzschlüssel-Format"
	MsgInvalidEmail        = "Ungültige E-Mail-Adresse"
	MsgLicenseNotFound     = "Lizenzschlüssel nicht gefunden"
	MsgEmailMismatch       = "E-Mail-Adresse stimmt nicht mit der Lizenz überein"
	MsgLicenseExpired      = "Lizenz ist abgelaufen"
	MsgLicenseTampered     = "Lizenzdaten sind ungültig"
	MsgTokenMissing        = "Download-Token fehlt"
	MsgTokenInvalid        = "Ungültiger oder abgelaufener Download-Token. Bitte fordern Sie einen neuen Link an."
	MsgValidationFailed    = "Serverfehler bei der Lizenzvalidierung"
	MsgDownloadFailed      = "Serverfehler beim Download"

	MsgPaymentUnavailable = "Zahlungssystem vorübergehend nicht verfügbar. Bitte versuchen Sie es später erneut."
	MsgLicenseUnavailable = "Lizenzsystem vorübergehend nicht verfügbar. Bitte versuchen Sie es später erneut."
	MsgMailUnavailable    = "E-Mail-System vorübergehend nicht verfügbar."
	MsgOrderFailed        = "PayPal-Bestellung konnte nicht erstellt werden"
	MsgCaptureFailed      = "PayPal-Zahlung konnte nicht abgeschlossen werden"
	MsgPaymentIncomplete  = "Zahlung nicht abgeschlossen"
	MsgLicenseMailFailed  = "Lizenz-E-Mail konnte nicht gesendet werden"
	MsgIssueFailed        = "Lizenz konnte nicht ausgestellt werden"
	MsgContactFailed      = "Nachricht konnte nicht gesendet werden"
	MsgInternal           = "Interner Serverfehler"
	MsgNotFound           = "Ressource nicht gefunden"
	MsgMethodNotAllowed   = "Methode nicht erlaubt"
)
