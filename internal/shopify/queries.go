package shopify

// GraphQL documents. Shared selections are GraphQL fragments appended to the
// operations that spread them.

const pageInfoFields = `
  pageInfo {
    hasNextPage
    hasPreviousPage
    startCursor
    endCursor
  }`

const productFragment = `
fragment ProductFields on Product {
  id
  title
  description
  handle
  availableForSale
  priceRange {
    minVariantPrice { amount currencyCode }
    maxVariantPrice { amount currencyCode }
  }
  images(first: $imageCount) {
    edges { node { url altText width height } }
  }
  variants(first: $variantCount) {
    edges {
      node {
        id
        title
        price { amount currencyCode }
        availableForSale
      }
    }
  }
  tags
}`

const articleFragment = `
fragment ArticleFields on Article {
  id
  title
  handle
  excerpt
  excerptHtml
  content
  contentHtml
  publishedAt
  author { name }
  image { url altText width height }
  tags
  blog { id title handle }
}`

const cartFragment = `
fragment CartFields on Cart {
  id
  checkoutUrl
  totalQuantity
  cost {
    totalAmount { amount currencyCode }
    subtotalAmount { amount currencyCode }
    totalTaxAmount { amount currencyCode }
  }
  lines(first: 100) {
    edges {
      node {
        id
        quantity
        cost {
          totalAmount { amount currencyCode }
        }
        merchandise {
          ... on ProductVariant {
            id
            title
            priceV2 { amount currencyCode }
            product {
              id
              title
              handle
              featuredImage { url altText width height }
            }
          }
        }
      }
    }
  }
}`

const orderFields = `
  id
  name
  orderNumber
  processedAt
  financialStatus
  fulfillmentStatus
  totalPrice { amount currencyCode }
  subtotalPrice { amount currencyCode }
  totalShippingPrice { amount currencyCode }
  totalTax { amount currencyCode }
  lineItems(first: $lineItemCount) {
    edges {
      node {
        title
        quantity
        variant {
          title
          price { amount currencyCode }
          image { url altText }
        }
      }
    }
  }
  shippingAddress {
    firstName
    lastName
    address1
    address2
    city
    province
    country
    zip
  }`

// === Catalog ===

const queryProducts = `
query GetProducts($first: Int!, $after: String, $query: String, $imageCount: Int = 5, $variantCount: Int = 10) {
  products(first: $first, after: $after, query: $query) {
    edges { cursor node { ...ProductFields } }` + pageInfoFields + `
  }
}` + productFragment

const queryProductByHandle = `
query GetProductByHandle($handle: String!, $imageCount: Int = 10, $variantCount: Int = 50) {
  productByHandle(handle: $handle) { ...ProductFields }
}` + productFragment

const queryProductByID = `
query GetProductById($id: ID!, $imageCount: Int = 10, $variantCount: Int = 50) {
  product(id: $id) { ...ProductFields }
}` + productFragment

const queryCollections = `
query GetCollections($first: Int!, $after: String) {
  collections(first: $first, after: $after) {
    edges {
      cursor
      node {
        id
        title
        description
        handle
        image { url altText width height }
        products(first: 4) {
          edges {
            node {
              id
              title
              handle
              priceRange { minVariantPrice { amount currencyCode } }
              images(first: 1) { edges { node { url altText } } }
            }
          }
        }
      }
    }` + pageInfoFields + `
  }
}`

const queryCollectionByHandle = `
query GetCollectionByHandle($handle: String!, $first: Int, $after: String, $imageCount: Int = 5, $variantCount: Int = 10) {
  collectionByHandle(handle: $handle) {
    id
    title
    description
    handle
    image { url altText width height }
    products(first: $first, after: $after) {
      edges { cursor node { ...ProductFields } }` + pageInfoFields + `
    }
  }
}` + productFragment

const queryCollectionByID = `
query GetCollectionById($id: ID!, $first: Int, $after: String, $imageCount: Int = 5, $variantCount: Int = 10) {
  collection(id: $id) {
    id
    title
    description
    handle
    image { url altText width height }
    products(first: $first, after: $after) {
      edges { cursor node { ...ProductFields } }` + pageInfoFields + `
    }
  }
}` + productFragment

// === Content ===

const queryBlogs = `
query GetBlogs($first: Int!, $after: String) {
  blogs(first: $first, after: $after) {
    edges { cursor node { id title handle } }` + pageInfoFields + `
  }
}`

const queryBlogByHandle = `
query GetBlogByHandle($handle: String!, $first: Int!, $after: String) {
  blogByHandle(handle: $handle) {
    id
    title
    handle
    articles(first: $first, after: $after) {
      edges { cursor node { ...ArticleFields } }` + pageInfoFields + `
    }
  }
}` + articleFragment

const queryArticles = `
query GetArticles($first: Int!, $after: String, $query: String) {
  articles(first: $first, after: $after, query: $query) {
    edges { cursor node { ...ArticleFields } }` + pageInfoFields + `
  }
}` + articleFragment

const queryArticleByHandle = `
query GetArticleByHandle($blogHandle: String!, $articleHandle: String!) {
  blogByHandle(handle: $blogHandle) {
    articleByHandle(handle: $articleHandle) { ...ArticleFields }
  }
}` + articleFragment

const queryArticleByID = `
query GetArticleById($id: ID!) {
  article(id: $id) { ...ArticleFields }
}` + articleFragment

const queryArticleTags = `
query GetArticlesTags($first: Int!, $after: String) {
  articles(first: $first, after: $after) {
    edges { cursor node { id tags } }` + pageInfoFields + `
  }
}`

const queryPageByHandle = `
query GetPageByHandle($handle: String!) {
  page(handle: $handle) {
    id
    title
    body
    bodySummary
  }
}`

const queryMenuByHandle = `
query GetMenuByHandle($handle: String!) {
  menu(handle: $handle) {
    id
    title
    items {
      id
      title
      url
      type
      items { id title url type }
    }
  }
}`

// === Customer ===

const mutationCustomerAccessTokenCreate = `
mutation customerAccessTokenCreate($input: CustomerAccessTokenCreateInput!) {
  customerAccessTokenCreate(input: $input) {
    customerAccessToken { accessToken expiresAt }
    customerUserErrors { code field message }
  }
}`

const mutationCustomerCreate = `
mutation customerCreate($input: CustomerCreateInput!) {
  customerCreate(input: $input) {
    customer { id email firstName lastName displayName }
    customerUserErrors { code field message }
  }
}`

const queryCustomer = `
query getCustomer($customerAccessToken: String!) {
  customer(customerAccessToken: $customerAccessToken) {
    id
    email
    firstName
    lastName
    displayName
    phone
  }
}`

const mutationCustomerAccessTokenRenew = `
mutation customerAccessTokenRenew($customerAccessToken: String!) {
  customerAccessTokenRenew(customerAccessToken: $customerAccessToken) {
    customerAccessToken { accessToken expiresAt }
    userErrors { field message }
  }
}`

const mutationCustomerAccessTokenDelete = `
mutation customerAccessTokenDelete($customerAccessToken: String!) {
  customerAccessTokenDelete(customerAccessToken: $customerAccessToken) {
    deletedAccessToken
    deletedCustomerAccessTokenId
    userErrors { field message }
  }
}`

const queryCustomerOrders = `
query getCustomerOrders($customerAccessToken: String!, $first: Int!, $after: String, $lineItemCount: Int = 10) {
  customer(customerAccessToken: $customerAccessToken) {
    id
    orders(first: $first, after: $after, sortKey: PROCESSED_AT, reverse: true) {
      edges { cursor node {` + orderFields + `
      } }` + pageInfoFields + `
    }
  }
}`

const queryCustomerOrder = `
query getOrderById($customerAccessToken: String!, $orderId: ID!, $lineItemCount: Int = 50) {
  customer(customerAccessToken: $customerAccessToken) {
    id
    order(id: $orderId) {` + orderFields + `
    }
  }
}`

// === Cart ===

const mutationCartCreate = `
mutation cartCreate($input: CartInput!) {
  cartCreate(input: $input) {
    cart { ...CartFields }
    userErrors { field message }
  }
}` + cartFragment

const queryCart = `
query getCart($cartId: ID!) {
  cart(id: $cartId) { ...CartFields }
}` + cartFragment

const mutationCartLinesAdd = `
mutation cartLinesAdd($cartId: ID!, $lines: [CartLineInput!]!) {
  cartLinesAdd(cartId: $cartId, lines: $lines) {
    cart { ...CartFields }
    userErrors { field message }
  }
}` + cartFragment

const mutationCartLinesUpdate = `
mutation cartLinesUpdate($cartId: ID!, $lines: [CartLineUpdateInput!]!) {
  cartLinesUpdate(cartId: $cartId, lines: $lines) {
    cart { ...CartFields }
    userErrors { field message }
  }
}` + cartFragment

const mutationCartLinesRemove = `
mutation cartLinesRemove($cartId: ID!, $lineIds: [ID!]!) {
  cartLinesRemove(cartId: $cartId, lineIds: $lineIds) {
    cart { ...CartFields }
    userErrors { field message }
  }
}` + cartFragment

const mutationCartBuyerIdentityUpdate = `
mutation cartBuyerIdentityUpdate($cartId: ID!, $buyerIdentity: CartBuyerIdentityInput!) {
  cartBuyerIdentityUpdate(cartId: $cartId, buyerIdentity: $buyerIdentity) {
    cart { ...CartFields }
    userErrors { field message }
  }
}` + cartFragment
