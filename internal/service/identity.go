package service

import (
	"context"
	"fmt"

	"shop-service/internal/models"
	"shop-service/internal/phone"
	"shop-service/internal/store"

	"go.uber.org/zap"
)

// resolveCustomer finds the customer by canonical phone key or email and refreshes
// their contact fields, or creates a new one. When the phone key and the email belong
// to two different customers the phone-key row is used.
func (s *OrderService) resolveCustomer(ctx context.Context, tx store.OrderTx, name, email, rawPhone string) (*models.User, error) {
	key := phone.Normalize(rawPhone)

	matches, err := tx.FindCustomers(ctx, key, email)
	if err != nil {
		return nil, err
	}

	if len(matches) == 0 {
		user := &models.User{
			Email:           email,
			FullName:        name,
			Phone:           rawPhone,
			NormalizedPhone: key,
		}
		if err := tx.CreateUser(ctx, user); err != nil {
			return nil, fmt.Errorf("failed to create customer: %w", err)
		}
		return user, nil
	}

	user := matches[0]
	if len(matches) > 1 && user.NormalizedPhone == key {
		s.logger.Warn("Phone and email match different customers, using phone match",
			zap.Int64("user_id", user.ID),
			zap.Int64("email_user_id", matches[1].ID),
			zap.String("normalized_phone", key))
	}

	user.FullName = name
	user.Phone = rawPhone
	user.NormalizedPhone = key
	if err := tx.UpdateUserContact(ctx, &user); err != nil {
		return nil, fmt.Errorf("failed to update customer %d: %w", user.ID, err)
	}
	return &user, nil
}
