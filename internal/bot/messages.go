package bot

// User-facing reply texts. HTML parse mode, same register as the order
// notifications.
const (
	contactButtonLabel = "📞 Поделиться контактом"

	welcomeText = "👋 <b>Добро пожаловать в Proton!</b>\n\n" +
		"Для получения уведомлений о новых заявках на аренду спецтехники, " +
		"пожалуйста, поделитесь своим номером телефона."

	alreadyRegisteredText = "✅ Вы уже зарегистрированы и получаете уведомления.\n" +
		"Отписаться: /stop"

	registeredText = "✅ <b>Регистрация успешна!</b>\n\n" +
		"Теперь вы будете получать уведомления о новых заявках " +
		"на аренду спецтехники, соответствующих вашему оборудованию."

	notFoundText = "❌ <b>Пользователь не найден</b>\n\n" +
		"Ваш номер телефона не зарегистрирован в системе Proton. " +
		"Пожалуйста, сначала зарегистрируйтесь в приложении или на сайте."

	registrationErrorText = "⚠️ Произошла ошибка при регистрации. Попробуйте позже."

	idTextFormat = "🆔 Ваш Telegram ID: <code>%s</code>"

	unsubscribedText = "🔕 Вы успешно отписались от уведомлений."

	unsubscribeErrorText = "⚠️ Произошла ошибка при отписке. Попробуйте позже."
)
