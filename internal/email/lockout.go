package email

import "fmt"

// LockoutAlert arma el aviso de seguridad que se dispara al alcanzar el
// umbral de intentos fallidos de login.
func LockoutAlert(username, ip string, windowMinutes int) (subject, html, text string) {
	subject = "Aviso de seguridad: intentos de acceso fallidos"

	html = fmt.Sprintf(`<p>Detectamos varios intentos fallidos de acceso a la cuenta <b>%s</b> desde la IP <code>%s</code>.</p>
<p>El acceso desde esa IP queda bloqueado por %d minutos. Si no fuiste vos, te recomendamos cambiar tu contraseña.</p>`,
		username, ip, windowMinutes)

	text = fmt.Sprintf("Detectamos varios intentos fallidos de acceso a la cuenta %s desde la IP %s.\n"+
		"El acceso desde esa IP queda bloqueado por %d minutos. Si no fuiste vos, cambia tu contraseña.",
		username, ip, windowMinutes)
	return subject, html, text
}
