package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"checkout-service/internal/entity"
	"checkout-service/internal/notify"
	"checkout-service/internal/repository"

	"go.opentelemetry.io/otel/metric"
)

var ErrInvalidTransition = errors.New("invalid order status transition")

const (
	defaultCarrier       = "Standard Shipping"
	estimatedDeliveryMin = 3
	estimatedDeliveryMax = 5
	deliveryInstructions = "Please ensure someone is available to receive the package. " +
		"You will be contacted by the carrier before delivery."
)

var statusMessages = map[entity.OrderStatus]string{
	entity.OrderStatusProcessing: "Your order is now being processed and will ship soon.",
	entity.OrderStatusDelivered:  "Your order has been delivered! Thank you for your purchase.",
	entity.OrderStatusCancelled:  "Your order has been cancelled. If you have questions, please contact support.",
}

// TransitionOptions carries data supplied with a shipping update.
type TransitionOptions struct {
	TrackingNumber string
	Carrier        string
}

// OrderStateMachine moves orders through their lifecycle and sends the
// notification each transition calls for.
type OrderStateMachine struct {
	orderRepo      repository.OrderRepository
	notifier       notify.Dispatcher
	notifyFailures metric.Int64Counter
	now            func() time.Time
}

func NewOrderStateMachine(orderRepo repository.OrderRepository, notifier notify.Dispatcher) *OrderStateMachine {
	return &OrderStateMachine{
		orderRepo:      orderRepo,
		notifier:       notifier,
		notifyFailures: newCounter("notifications_failed_total", "Notifications that could not be handed off"),
		now:            time.Now,
	}
}

// Transition moves the order to next. Setting the status it already has
// changes nothing and sends nothing.
func (m *OrderStateMachine) Transition(ctx context.Context, orderID string, next entity.OrderStatus, opts TransitionOptions) (*entity.Order, error) {
	order, err := m.orderRepo.GetOrderByID(ctx, orderID)
	if err != nil {
		if !errors.Is(err, repository.ErrNotFound) {
			logger.Error().Err(err).Msgf("Error getting order by ID %s", orderID)
		}
		return nil, err
	}

	if order.Status == next {
		return order, nil
	}
	if order.Status.IsTerminal() {
		return nil, fmt.Errorf("%w: order is already %s", ErrInvalidTransition, order.Status)
	}
	if !order.Status.CanTransitionTo(next) {
		return nil, fmt.Errorf("%w: %s to %s", ErrInvalidTransition, order.Status, next)
	}

	now := m.now().UTC()
	trackingNumber := order.TrackingNumber
	if next == entity.OrderStatusShipped {
		if opts.TrackingNumber != "" {
			trackingNumber = opts.TrackingNumber
		} else if trackingNumber == "" {
			trackingNumber = TrackingNumber(order.ID, now)
		}
	}

	previous := order.Status
	if err := m.orderRepo.UpdateOrderStatus(ctx, order.ID, previous, next, trackingNumber); err != nil {
		logger.Error().Err(err).Msgf("Error updating order %s from %s to %s", order.ID, previous, next)
		return nil, err
	}
	order.Status = next
	order.TrackingNumber = trackingNumber
	order.UpdatedAt = now

	logger.Info().Msgf("Order %s moved from %s to %s", order.ID, previous, next)

	if next == entity.OrderStatusShipped {
		carrier := opts.Carrier
		if carrier == "" {
			carrier = defaultCarrier
		}
		sendNotification(ctx, m.notifier, m.notifyFailures, entity.NotificationShippingConfirmation, order, map[string]interface{}{
			"tracking_number":         trackingNumber,
			"carrier":                 carrier,
			"estimated_days":          estimatedDeliveryMin,
			"estimated_delivery_from": now.AddDate(0, 0, estimatedDeliveryMin).Format("2006-01-02"),
			"estimated_delivery_to":   now.AddDate(0, 0, estimatedDeliveryMax).Format("2006-01-02"),
			"delivery_instructions":   deliveryInstructions,
		})
		return order, nil
	}

	if msg, ok := statusMessages[next]; ok {
		sendNotification(ctx, m.notifier, m.notifyFailures, entity.NotificationStatusUpdate, order, map[string]interface{}{
			"previous_status": string(previous),
			"new_status":      string(next),
			"message":         msg,
		})
	}
	return order, nil
}

// TrackingNumber derives a tracking number from the order id and the
// shipping date. The same inputs always give the same result.
func TrackingNumber(orderID string, date time.Time) string {
	return fmt.Sprintf("ENT%s%s", orderID, date.Format("20060102"))
}
