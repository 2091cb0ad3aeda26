package notification

import "gigfinder-ticketing/config"

func smtpTestConfig() config.MailConfig {
	return config.MailConfig{
		Host: "localhost",
		Port: 2525,
		From: "tickets@gigfinder.test",
	}
}
