package worker

import (
	"github.com/spec-kit/identity-service/internal/service"
)

// StartNotificationWorker subscribes the notification handlers to the dispatcher.
// It must run before the first request is served so no account event is missed.
func StartNotificationWorker(notificationService *service.NotificationService) {
	if notificationService == nil {
		return
	}
	notificationService.RegisterHandlers()
}
