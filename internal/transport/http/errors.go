package http

import "errors"

var errRabbitMQClosed = errors.New("rabbitmq connection closed")
