package models

// All returns every persisted model in migration order
func All() []interface{} {
	return []interface{}{
		&SubscriptionPlan{},
		&Wallet{},
		&PaymentMethod{},
		&UserSubscription{},
		&Transaction{},
		&WalletTopUp{},
	}
}
