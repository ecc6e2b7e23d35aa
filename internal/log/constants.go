package log

const (
	KeyAppName        = "app"
	KeyRequestID      = "requestId"
	KeyProcess        = "process"
	KeyTag            = "tag"
	KeyConfig         = "config"
	KeyRequest        = "request"
	KeyRequestHeader  = "requestHeader"
	KeyRequestHost    = "host"
	KeyRequestIp      = "requesterIP"
	KeyRequestMethod  = "requestMethod"
	KeyRequestURI     = "requestURI"
	KeyRequestURL     = "requestURL"
	KeyResponseStatus = "responseStatus"
	KeyTraceID        = "traceId"
	KeySpanID         = "spanId"
	KeyDbURL          = "dbUrl"
	KeyCacheKey       = "cacheKey"

	KeySessionID      = "sessionId"
	KeyAuthenticated  = "authenticated"
	KeyProductID      = "productId"
	KeyProductIDs     = "productIds"
	KeyQuantity       = "quantity"
	KeyCartItems      = "cartItems"
	KeyCartItemsCount = "cartItemsCount"
	KeySelectedIDs    = "selectedProductIds"
	KeyGeneration     = "generation"
	KeyAddressID      = "addressId"
	KeyPaymentMethod  = "paymentMethod"
	KeyShippingCost   = "shippingCost"
	KeyCheckoutState  = "checkoutState"
	KeyEndpoint       = "endpoint"
	KeyStatusCode     = "statusCode"
)
