package chain

// stakingABI covers the read-only surface of the staking contract.
const stakingABI = `[
  {
    "type": "function", "name": "userStakes", "stateMutability": "view",
    "inputs": [
      {"name": "", "type": "address"},
      {"name": "", "type": "uint256"}
    ],
    "outputs": [
      {"name": "tokenType", "type": "uint8"},
      {"name": "tier", "type": "uint256"},
      {"name": "amount", "type": "uint256"},
      {"name": "startTime", "type": "uint256"},
      {"name": "lastClaimTime", "type": "uint256"},
      {"name": "isActive", "type": "bool"}
    ]
  },
  {
    "type": "function", "name": "stakingConfigs", "stateMutability": "view",
    "inputs": [
      {"name": "", "type": "uint8"},
      {"name": "", "type": "uint256"}
    ],
    "outputs": [
      {"name": "minStakeAmount", "type": "uint256"},
      {"name": "lockupPeriod", "type": "uint256"},
      {"name": "annualRewardRate", "type": "uint256"},
      {"name": "earlyUnstakePenalty", "type": "uint256"}
    ]
  },
  {
    "type": "function", "name": "getPoolInfo", "stateMutability": "view",
    "inputs": [],
    "outputs": [
      {"name": "totalValueLocked", "type": "uint256"},
      {"name": "availableLiquidity", "type": "uint256"},
      {"name": "totalStakers", "type": "uint256"}
    ]
  }
]`

// erc20ABI is the subset of ERC-20 used to read wallet balances.
const erc20ABI = `[
  {
    "type": "function", "name": "balanceOf", "stateMutability": "view",
    "inputs": [{"name": "account", "type": "address"}],
    "outputs": [{"name": "", "type": "uint256"}]
  }
]`
